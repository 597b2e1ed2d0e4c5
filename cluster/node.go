package cluster

import (
	"context"
	"sync"

	"github.com/southpawdb/southpaw/message"
	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/storage"
	"github.com/southpawdb/southpaw/topology"
)

// a ring member the coordinator can execute operations against
type Replica interface {
	topology.Node

	// returns the replica's value for key, nil if it has none
	Read(ctx context.Context, key string) (*storage.Value, error)

	// applies a versioned value to the replica's store
	Write(ctx context.Context, key string, val *storage.Value) error
}

// the baseNode defines the properties common to node types
type baseNode struct {
	id   node.NodeId
	name string
	addr string
	rack string
}

func (n *baseNode) GetId() node.NodeId { return n.id }
func (n *baseNode) Name() string       { return n.name }
func (n *baseNode) GetAddr() string    { return n.addr }
func (n *baseNode) GetRack() string    { return n.rack }

// LocalNode executes operations against the local storage engine
type LocalNode struct {
	baseNode
	engine storage.Engine

	// serializes the read/compare/write in Write. The engine
	// has no compare and set
	writeLock sync.Mutex
}

var _ Replica = &LocalNode{}

func NewLocalNode(id node.NodeId, name string, addr string, rack string, engine storage.Engine) *LocalNode {
	n := &LocalNode{engine: engine}
	n.id = id
	n.name = name
	n.addr = addr
	n.rack = rack
	return n
}

func (n *LocalNode) Read(ctx context.Context, key string) (*storage.Value, error) {
	return n.engine.Get(key)
}

// applies the value with last-writer-wins resolution: a value that
// doesn't supersede what's already stored is dropped. This is what
// makes retries, read repair and hint replay idempotent
func (n *LocalNode) Write(ctx context.Context, key string, val *storage.Value) error {
	n.writeLock.Lock()
	defer n.writeLock.Unlock()

	existing, err := n.engine.Get(key)
	if err != nil {
		return err
	}
	if existing != nil && existing.Supersedes(val) {
		return nil
	}
	return n.engine.Put(key, val)
}

// sends a request to the node at the given address and returns its
// response. Connection management, framing and node addressing live
// behind this boundary
type MessageSender interface {
	SendMessage(ctx context.Context, addr string, msg message.Message) (message.Message, error)
}

// RemoteNode executes operations against another cluster member
// through a MessageSender
type RemoteNode struct {
	baseNode
	sender MessageSender
}

var _ Replica = &RemoteNode{}

func NewRemoteNode(id node.NodeId, name string, addr string, rack string, sender MessageSender) *RemoteNode {
	n := &RemoteNode{sender: sender}
	n.id = id
	n.name = name
	n.addr = addr
	n.rack = rack
	return n
}

func (n *RemoteNode) Read(ctx context.Context, key string) (*storage.Value, error) {
	response, err := n.sender.SendMessage(ctx, n.addr, &message.ReadRequest{Key: key})
	if err != nil {
		return nil, err
	}
	switch m := response.(type) {
	case *message.ReadResponse:
		if !m.Found {
			return nil, nil
		}
		return &m.Value, nil
	case *message.ErrorResponse:
		return nil, NewRemoteError(n.name, m.Message)
	default:
		return nil, NewRemoteError(n.name, "unexpected response type: %T", response)
	}
}

func (n *RemoteNode) Write(ctx context.Context, key string, val *storage.Value) error {
	response, err := n.sender.SendMessage(ctx, n.addr, &message.WriteRequest{Key: key, Value: *val})
	if err != nil {
		return err
	}
	switch m := response.(type) {
	case *message.WriteResponse:
		return nil
	case *message.ErrorResponse:
		return NewRemoteError(n.name, m.Message)
	default:
		return NewRemoteError(n.name, "unexpected response type: %T", response)
	}
}
