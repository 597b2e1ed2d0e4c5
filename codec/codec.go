/**

common serialize/deserialize functions shared by the wire messages,
the storage value encoding, and the hint store

*/
package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
)

// writes the field length, then the field to the writer
func WriteFieldBytes(buf *bufio.Writer, bytes []byte) error {
	// write field length
	size := uint32(len(bytes))
	if err := binary.Write(buf, binary.LittleEndian, &size); err != nil {
		return err
	}
	// write field
	n, err := buf.Write(bytes)
	if err != nil {
		return err
	}
	if uint32(n) != size {
		return fmt.Errorf("unexpected num bytes written. Expected %v, got %v", size, n)
	}
	return nil
}

// read field bytes
func ReadFieldBytes(buf *bufio.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(buf, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	bytes := make([]byte, size)
	if _, err := fullRead(buf, bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}

// bufio.Reader.Read can return fewer bytes than requested
// for fields straddling the buffer boundary
func fullRead(buf *bufio.Reader, bytes []byte) (int, error) {
	read := 0
	for read < len(bytes) {
		n, err := buf.Read(bytes[read:])
		if err != nil {
			return read, err
		}
		read += n
	}
	return read, nil
}

func WriteFieldString(buf *bufio.Writer, str string) error {
	return WriteFieldBytes(buf, []byte(str))
}

func ReadFieldString(buf *bufio.Reader) (string, error) {
	bytes, err := ReadFieldBytes(buf)
	return string(bytes), err
}

// writes an int64, for timestamps
func WriteInt64(buf *bufio.Writer, i int64) error {
	return binary.Write(buf, binary.LittleEndian, &i)
}

func ReadInt64(buf *bufio.Reader) (int64, error) {
	var i int64
	err := binary.Read(buf, binary.LittleEndian, &i)
	return i, err
}

func WriteUint32(buf *bufio.Writer, i uint32) error {
	return binary.Write(buf, binary.LittleEndian, &i)
}

func ReadUint32(buf *bufio.Reader) (uint32, error) {
	var i uint32
	err := binary.Read(buf, binary.LittleEndian, &i)
	return i, err
}

func WriteBool(buf *bufio.Writer, b bool) error {
	var v uint8
	if b {
		v = 1
	}
	return binary.Write(buf, binary.LittleEndian, &v)
}

func ReadBool(buf *bufio.Reader) (bool, error) {
	var v uint8
	if err := binary.Read(buf, binary.LittleEndian, &v); err != nil {
		return false, err
	}
	return v != 0, nil
}

// returns the size of a serialized byte field
func NumBytesBytes(b []byte) int {
	return 4 + len(b)
}

// returns the size of a serialized string field
func NumStringBytes(s string) int {
	return 4 + len(s)
}

func NumInt64Bytes() int {
	return 8
}

func NumBoolBytes() int {
	return 1
}
