package message

import (
	"bufio"

	"github.com/southpawdb/southpaw/codec"
)

const (
	HEARTBEAT_REQUEST  = uint32(306)
	HEARTBEAT_RESPONSE = uint32(307)
)

func init() {
	RegisterMessage(HEARTBEAT_REQUEST, func() Message { return &HeartbeatRequest{} })
	RegisterMessage(HEARTBEAT_RESPONSE, func() Message { return &HeartbeatResponse{} })
}

// ----------- liveness -----------

// announces the sender is alive. NodeId identifies the sender so
// the receiver can update its failure detector
type HeartbeatRequest struct {
	NodeId string
}

var _ = Message(&HeartbeatRequest{})

func (m *HeartbeatRequest) Serialize(buf *bufio.Writer) error {
	return codec.WriteFieldString(buf, m.NodeId)
}

func (m *HeartbeatRequest) Deserialize(buf *bufio.Reader) error {
	var err error
	m.NodeId, err = codec.ReadFieldString(buf)
	return err
}

func (m *HeartbeatRequest) GetType() uint32 { return HEARTBEAT_REQUEST }

func (m *HeartbeatRequest) NumBytes() int {
	return codec.NumStringBytes(m.NodeId)
}

type HeartbeatResponse struct {
	NodeId string
}

var _ = Message(&HeartbeatResponse{})

func (m *HeartbeatResponse) Serialize(buf *bufio.Writer) error {
	return codec.WriteFieldString(buf, m.NodeId)
}

func (m *HeartbeatResponse) Deserialize(buf *bufio.Reader) error {
	var err error
	m.NodeId, err = codec.ReadFieldString(buf)
	return err
}

func (m *HeartbeatResponse) GetType() uint32 { return HEARTBEAT_RESPONSE }

func (m *HeartbeatResponse) NumBytes() int {
	return codec.NumStringBytes(m.NodeId)
}
