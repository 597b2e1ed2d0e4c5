package topology

import (
	"github.com/southpawdb/southpaw/node"
)

// minimal ring member used by tests in this package
type mockMember struct {
	id   node.NodeId
	name string
	addr string
	rack string
}

var _ Node = &mockMember{}

func newMockMember(name string, rack string) *mockMember {
	return &mockMember{
		id:   node.NewNodeId(),
		name: name,
		addr: name + ":9999",
		rack: rack,
	}
}

func (n *mockMember) GetId() node.NodeId { return n.id }
func (n *mockMember) Name() string       { return n.name }
func (n *mockMember) GetAddr() string    { return n.addr }
func (n *mockMember) GetRack() string    { return n.rack }
