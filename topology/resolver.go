package topology

import (
	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/partitioner"
)

// the ordered replicas responsible for a key, computed per request
// from a single ring snapshot. Never cached across operations, the
// ring may change between requests
type ReplicaSet struct {
	Token       partitioner.Token
	RingVersion uint64
	Replicas    []Node
}

func (rs ReplicaSet) Size() int {
	return len(rs.Replicas)
}

func (rs ReplicaSet) NodeIds() []node.NodeId {
	ids := make([]node.NodeId, len(rs.Replicas))
	for i, n := range rs.Replicas {
		ids[i] = n.GetId()
	}
	return ids
}

// routes keys to their replicas using the configured partitioner,
// placement strategy and replication factor
type Resolver struct {
	ring              *Ring
	partitioner       partitioner.Partitioner
	strategy          Strategy
	replicationFactor int
}

func NewResolver(ring *Ring, p partitioner.Partitioner, strategy Strategy, replicationFactor int) *Resolver {
	return &Resolver{
		ring:              ring,
		partitioner:       p,
		strategy:          strategy,
		replicationFactor: replicationFactor,
	}
}

func (r *Resolver) ReplicationFactor() int {
	return r.replicationFactor
}

func (r *Resolver) Ring() *Ring {
	return r.ring
}

// returns the replica set for the given key
func (r *Resolver) Resolve(key string) ReplicaSet {
	return r.ResolveToken(r.partitioner.GetToken(key))
}

// returns the replica set for the given token
func (r *Resolver) ResolveToken(t partitioner.Token) ReplicaSet {
	state := r.ring.State()
	return ReplicaSet{
		Token:       t,
		RingVersion: state.Version(),
		Replicas:    r.strategy.Replicas(state, t, r.replicationFactor),
	}
}
