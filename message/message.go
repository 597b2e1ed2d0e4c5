package message

import (
	"bufio"
)

// message wire protocol is as follows:
// [type (4b)]...[field size (4b)][field data]
// each message type defines its own field layout
type Message interface {

	// serializes the message body, everything after the
	// type header
	Serialize(*bufio.Writer) error

	// deserializes everything after the type header
	Deserialize(*bufio.Reader) error

	// returns the message type enum
	GetType() uint32

	// returns the expected number of serialized body bytes
	NumBytes() int
}
