package message

import (
	"fmt"
)

type MessageEncodingError struct {
	message string
}

func (e *MessageEncodingError) Error() string {
	return e.message
}

func NewMessageEncodingError(format string, a ...interface{}) *MessageEncodingError {
	return &MessageEncodingError{fmt.Sprintf(format, a...)}
}
