package cluster

import (
	"fmt"

	"github.com/southpawdb/southpaw/consistency"
	"github.com/southpawdb/southpaw/node"
)

// not enough live replicas to satisfy the requested consistency
// level. Detected before dispatch, nothing was written
type UnavailableError struct {
	Level    consistency.Level
	Required int
	Live     int
	Replicas []node.NodeId
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf(
		"cannot satisfy %v: %v live of %v required replicas (replica set: %v)",
		e.Level, e.Live, e.Required, e.Replicas)
}

func NewUnavailableError(level consistency.Level, required int, live int, replicas []node.NodeId) *UnavailableError {
	return &UnavailableError{Level: level, Required: required, Live: live, Replicas: replicas}
}

// the ack threshold wasn't reached before the deadline. Ambiguous
// for writes: the write may have landed on a subset of replicas
// and is not rolled back
type TimeoutError struct {
	Level    consistency.Level
	Acked    int
	Required int
	Replicas []node.NodeId
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"%v operation timed out with %v of %v acks, may have partially succeeded (replica set: %v)",
		e.Level, e.Acked, e.Required, e.Replicas)
}

func NewTimeoutError(level consistency.Level, acked int, required int, replicas []node.NodeId) *TimeoutError {
	return &TimeoutError{Level: level, Acked: acked, Required: required, Replicas: replicas}
}

// every responding replica reported no value for the key
type NotFoundError struct {
	Key      string
	Level    consistency.Level
	Acked    int
	Replicas []node.NodeId
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"no value found for key %v at %v with %v responses (replica set: %v)",
		e.Key, e.Level, e.Acked, e.Replicas)
}

func NewNotFoundError(key string, level consistency.Level, acked int, replicas []node.NodeId) *NotFoundError {
	return &NotFoundError{Key: key, Level: level, Acked: acked, Replicas: replicas}
}

// a replica-side failure relayed back to the coordinator
type RemoteError struct {
	Node    string
	message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("node %v: %v", e.Node, e.message)
}

func NewRemoteError(nodeName string, format string, a ...interface{}) *RemoteError {
	return &RemoteError{Node: nodeName, message: fmt.Sprintf(format, a...)}
}
