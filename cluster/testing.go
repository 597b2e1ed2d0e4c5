package cluster

import (
	"context"
	"fmt"
	"sync"

	"github.com/southpawdb/southpaw/message"
	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/storage"
)

type mockReadCall struct {
	key string
}

type mockWriteCall struct {
	key string
	val *storage.Value
}

// a scriptable replica backed by an in memory value map. Reads and
// writes are recorded, and either can be forced to fail or to block
// until the test releases it
type mockReplica struct {
	baseNode

	lock   sync.Mutex
	values map[string]*storage.Value
	reads  []mockReadCall
	writes []mockWriteCall

	readErr  error
	writeErr error

	// closed by the test to release blocked calls
	blockChan chan struct{}
}

var _ Replica = &mockReplica{}

func newMockReplica(name string, rack string) *mockReplica {
	n := &mockReplica{}
	n.id = node.NewNodeId()
	n.name = name
	n.addr = name + ":9999"
	n.rack = rack
	n.values = make(map[string]*storage.Value)
	n.reads = make([]mockReadCall, 0, 5)
	n.writes = make([]mockWriteCall, 0, 5)
	return n
}

func (n *mockReplica) Read(ctx context.Context, key string) (*storage.Value, error) {
	n.lock.Lock()
	n.reads = append(n.reads, mockReadCall{key: key})
	err := n.readErr
	block := n.blockChan
	val := n.values[key]
	n.lock.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (n *mockReplica) Write(ctx context.Context, key string, val *storage.Value) error {
	n.lock.Lock()
	n.writes = append(n.writes, mockWriteCall{key: key, val: val})
	err := n.writeErr
	block := n.blockChan
	n.lock.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	n.lock.Lock()
	existing := n.values[key]
	if existing == nil || !existing.Supersedes(val) {
		n.values[key] = val
	}
	n.lock.Unlock()
	return nil
}

func (n *mockReplica) setValue(key string, val *storage.Value) {
	n.lock.Lock()
	n.values[key] = val
	n.lock.Unlock()
}

func (n *mockReplica) getValue(key string) *storage.Value {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.values[key]
}

func (n *mockReplica) numReads() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return len(n.reads)
}

func (n *mockReplica) numWrites() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return len(n.writes)
}

func (n *mockReplica) failReads(err error) {
	n.lock.Lock()
	n.readErr = err
	n.lock.Unlock()
}

func (n *mockReplica) failWrites(err error) {
	n.lock.Lock()
	n.writeErr = err
	n.lock.Unlock()
}

// makes reads and writes block until release is called
func (n *mockReplica) block() {
	n.lock.Lock()
	n.blockChan = make(chan struct{})
	n.lock.Unlock()
}

func (n *mockReplica) release() {
	n.lock.Lock()
	if n.blockChan != nil {
		close(n.blockChan)
		n.blockChan = nil
	}
	n.lock.Unlock()
}

// a MessageSender that dispatches requests straight into a
// QueryService, bypassing the network
type localSender struct {
	services map[string]*QueryService
}

var _ MessageSender = &localSender{}

func newLocalSender() *localSender {
	return &localSender{services: make(map[string]*QueryService)}
}

func (s *localSender) register(addr string, service *QueryService) {
	s.services[addr] = service
}

func (s *localSender) SendMessage(ctx context.Context, addr string, msg message.Message) (message.Message, error) {
	service, ok := s.services[addr]
	if !ok {
		return nil, fmt.Errorf("no service registered at %v", addr)
	}
	return service.HandleMessage(ctx, msg)
}
