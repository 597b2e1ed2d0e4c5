package storage

import (
	"bufio"
	"bytes"
	"time"

	"github.com/southpawdb/southpaw/codec"
	"github.com/southpawdb/southpaw/node"
)

// a value and the version information used to order it against
// other values written for the same key. Timestamps are wall clock
// microseconds with the writing coordinator's node id breaking ties,
// which makes "most recent" a total order. These objects should be
// considered immutable once instantiated
type Value struct {
	Data      []byte
	Timestamp int64
	Node      node.NodeId
	Tombstone bool
}

// returns the current timestamp at value resolution
func Now() int64 {
	return time.Now().UnixMicro()
}

func NewValue(data []byte, timestamp int64, nid node.NodeId) *Value {
	return &Value{Data: data, Timestamp: timestamp, Node: nid}
}

// a delete is a write of a tombstone value
func NewTombstone(timestamp int64, nid node.NodeId) *Value {
	return &Value{Timestamp: timestamp, Node: nid, Tombstone: true}
}

// returns true if this value wins last-writer-wins resolution
// against the other value. A nil other value always loses
func (v *Value) Supersedes(o *Value) bool {
	if o == nil {
		return true
	}
	if v.Timestamp != o.Timestamp {
		return v.Timestamp > o.Timestamp
	}
	return v.Node > o.Node
}

// version equality test, used to detect replica divergence
func (v *Value) Same(o *Value) bool {
	if o == nil {
		return false
	}
	if v.Timestamp != o.Timestamp {
		return false
	}
	if v.Node != o.Node {
		return false
	}
	if v.Tombstone != o.Tombstone {
		return false
	}
	return bytes.Equal(v.Data, o.Data)
}

func (v *Value) Serialize(buf *bufio.Writer) error {
	if err := codec.WriteFieldBytes(buf, v.Data); err != nil {
		return err
	}
	if err := codec.WriteInt64(buf, v.Timestamp); err != nil {
		return err
	}
	if err := codec.WriteFieldString(buf, string(v.Node)); err != nil {
		return err
	}
	if err := codec.WriteBool(buf, v.Tombstone); err != nil {
		return err
	}
	return nil
}

func (v *Value) Deserialize(buf *bufio.Reader) error {
	if b, err := codec.ReadFieldBytes(buf); err != nil {
		return err
	} else {
		v.Data = b
	}
	var err error
	if v.Timestamp, err = codec.ReadInt64(buf); err != nil {
		return err
	}
	if s, err := codec.ReadFieldString(buf); err != nil {
		return err
	} else {
		v.Node = node.NodeId(s)
	}
	var err2 error
	if v.Tombstone, err2 = codec.ReadBool(buf); err2 != nil {
		return err2
	}
	return nil
}

// returns the expected number of bytes from serialization
func (v *Value) NumBytes() int {
	numBytes := 0
	numBytes += codec.NumBytesBytes(v.Data)
	numBytes += codec.NumInt64Bytes()
	numBytes += codec.NumStringBytes(string(v.Node))
	numBytes += codec.NumBoolBytes()
	return numBytes
}

// serializes a value to a standalone byte slice
func EncodeValue(v *Value) ([]byte, error) {
	b := &bytes.Buffer{}
	w := bufio.NewWriter(b)
	if err := v.Serialize(w); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func DecodeValue(b []byte) (*Value, error) {
	v := &Value{}
	if err := v.Deserialize(bufio.NewReader(bytes.NewReader(b))); err != nil {
		return nil, err
	}
	return v, nil
}
