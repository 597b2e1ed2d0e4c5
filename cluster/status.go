package cluster

import (
	"github.com/southpawdb/southpaw/node"
)

type NodeStatus struct {
	Id     node.NodeId
	Name   string
	Addr   string
	Rack   string
	Status node.Status
}

// read only view of the ring and per node liveness for
// observability tooling
type ClusterStatus struct {
	RingVersion uint64
	Nodes       []NodeStatus
}

func (c *Coordinator) ClusterStatus() *ClusterStatus {
	state := c.resolver.Ring().State()
	nodes := state.AllNodes()

	status := &ClusterStatus{
		RingVersion: state.Version(),
		Nodes:       make([]NodeStatus, len(nodes)),
	}
	for i, n := range nodes {
		status.Nodes[i] = NodeStatus{
			Id:     n.GetId(),
			Name:   n.Name(),
			Addr:   n.GetAddr(),
			Rack:   n.GetRack(),
			Status: c.detector.Status(n.GetId()),
		}
	}
	return status
}
