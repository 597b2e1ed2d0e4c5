package message

import (
	"bufio"

	"github.com/southpawdb/southpaw/codec"
	"github.com/southpawdb/southpaw/storage"
)

const (
	READ_REQUEST   = uint32(301)
	WRITE_REQUEST  = uint32(302)
	READ_RESPONSE  = uint32(303)
	WRITE_RESPONSE = uint32(304)
	ERROR_RESPONSE = uint32(305)
)

func init() {
	RegisterMessage(READ_REQUEST, func() Message { return &ReadRequest{} })
	RegisterMessage(WRITE_REQUEST, func() Message { return &WriteRequest{} })
	RegisterMessage(READ_RESPONSE, func() Message { return &ReadResponse{} })
	RegisterMessage(WRITE_RESPONSE, func() Message { return &WriteResponse{} })
	RegisterMessage(ERROR_RESPONSE, func() Message { return &ErrorResponse{} })
}

// ----------- query execution -----------

type ReadRequest struct {
	Key string
}

var _ = Message(&ReadRequest{})

func (m *ReadRequest) Serialize(buf *bufio.Writer) error {
	return codec.WriteFieldString(buf, m.Key)
}

func (m *ReadRequest) Deserialize(buf *bufio.Reader) error {
	var err error
	m.Key, err = codec.ReadFieldString(buf)
	return err
}

func (m *ReadRequest) GetType() uint32 { return READ_REQUEST }

func (m *ReadRequest) NumBytes() int {
	return codec.NumStringBytes(m.Key)
}

type WriteRequest struct {
	Key   string
	Value storage.Value
}

var _ = Message(&WriteRequest{})

func (m *WriteRequest) Serialize(buf *bufio.Writer) error {
	if err := codec.WriteFieldString(buf, m.Key); err != nil {
		return err
	}
	return m.Value.Serialize(buf)
}

func (m *WriteRequest) Deserialize(buf *bufio.Reader) error {
	var err error
	if m.Key, err = codec.ReadFieldString(buf); err != nil {
		return err
	}
	return m.Value.Deserialize(buf)
}

func (m *WriteRequest) GetType() uint32 { return WRITE_REQUEST }

func (m *WriteRequest) NumBytes() int {
	return codec.NumStringBytes(m.Key) + m.Value.NumBytes()
}

type ReadResponse struct {
	Found bool
	Value storage.Value
}

var _ = Message(&ReadResponse{})

func (m *ReadResponse) Serialize(buf *bufio.Writer) error {
	if err := codec.WriteBool(buf, m.Found); err != nil {
		return err
	}
	if !m.Found {
		return nil
	}
	return m.Value.Serialize(buf)
}

func (m *ReadResponse) Deserialize(buf *bufio.Reader) error {
	var err error
	if m.Found, err = codec.ReadBool(buf); err != nil {
		return err
	}
	if !m.Found {
		return nil
	}
	return m.Value.Deserialize(buf)
}

func (m *ReadResponse) GetType() uint32 { return READ_RESPONSE }

func (m *ReadResponse) NumBytes() int {
	numBytes := codec.NumBoolBytes()
	if m.Found {
		numBytes += m.Value.NumBytes()
	}
	return numBytes
}

type WriteResponse struct{}

var _ = Message(&WriteResponse{})

func (m *WriteResponse) Serialize(buf *bufio.Writer) error   { return nil }
func (m *WriteResponse) Deserialize(buf *bufio.Reader) error { return nil }
func (m *WriteResponse) GetType() uint32                     { return WRITE_RESPONSE }
func (m *WriteResponse) NumBytes() int                       { return 0 }

// carries a replica side failure back to the coordinator
type ErrorResponse struct {
	Message string
}

var _ = Message(&ErrorResponse{})

func (m *ErrorResponse) Serialize(buf *bufio.Writer) error {
	return codec.WriteFieldString(buf, m.Message)
}

func (m *ErrorResponse) Deserialize(buf *bufio.Reader) error {
	var err error
	m.Message, err = codec.ReadFieldString(buf)
	return err
}

func (m *ErrorResponse) GetType() uint32 { return ERROR_RESPONSE }

func (m *ErrorResponse) NumBytes() int {
	return codec.NumStringBytes(m.Message)
}
