/**
Contains the token ring and replica placement logic.

The ring maps tokens to owning nodes. Mutations only happen on
membership events and are serialized behind a single mutex; reads
work against immutable state snapshots identified by a monotonically
increasing version, so the query hot path never takes a lock and
in-flight operations can detect they resolved replicas against a
stale ring.
*/
package topology

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/partitioner"
)

// a cluster member as seen by the placement logic
type Node interface {
	node.Node

	GetAddr() string
	GetRack() string
}

// a single token -> owner assignment
type tokenEntry struct {
	token partitioner.Token
	owner Node
}

// an immutable view of the ring at a single version.
// token entries are kept in a sorted slice and traversed with
// index arithmetic and modulo wraparound, there is no linked
// ring structure
type RingState struct {
	version uint64
	entries []tokenEntry
	nodes   map[node.NodeId]Node
}

func (s *RingState) Version() uint64 {
	return s.version
}

// number of distinct nodes on the ring
func (s *RingState) Size() int {
	return len(s.nodes)
}

func (s *RingState) NumTokens() int {
	return len(s.entries)
}

func (s *RingState) GetNode(nid node.NodeId) (Node, bool) {
	n, ok := s.nodes[nid]
	return n, ok
}

// returns all nodes on the ring, ordered by their first token
func (s *RingState) AllNodes() []Node {
	nodes := make([]Node, 0, len(s.nodes))
	seen := make(map[node.NodeId]bool, len(s.nodes))
	for _, e := range s.entries {
		nid := e.owner.GetId()
		if !seen[nid] {
			seen[nid] = true
			nodes = append(nodes, e.owner)
		}
	}
	return nodes
}

// returns the index of the first entry with a token greater than
// or equal to the given token, wrapping to zero past the end.
// a token belongs to the first node with a token >= it, values
// are replicated forward in the ring
func (s *RingState) search(t partitioner.Token) int {
	idx := sort.Search(len(s.entries), func(i int) bool {
		return t.Cmp(s.entries[i].token) <= 0
	})
	return idx % len(s.entries)
}

// returns the node owning the given token
func (s *RingState) Owner(t partitioner.Token) (Node, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[s.search(t)].owner, true
}

// returns the first n distinct nodes encountered walking clockwise
// from the given token. The walk wraps around the ring exactly once,
// so fewer than n nodes are returned only when the ring holds fewer
// than n distinct nodes
func (s *RingState) Walk(t partitioner.Token, n int) []Node {
	if len(s.entries) == 0 || n < 1 {
		return []Node{}
	}

	if n > len(s.nodes) {
		n = len(s.nodes)
	}
	nodes := make([]Node, 0, n)
	seen := make(map[node.NodeId]bool, n)

	start := s.search(t)
	for i := 0; i < len(s.entries) && len(nodes) < n; i++ {
		owner := s.entries[(start+i)%len(s.entries)].owner
		if seen[owner.GetId()] {
			continue
		}
		seen[owner.GetId()] = true
		nodes = append(nodes, owner)
	}
	return nodes
}

// encapsulates all of the ring mutation logic. Membership changes
// produce a new state snapshot instead of editing in place
type Ring struct {
	mutex sync.Mutex
	state atomic.Pointer[RingState]
}

// creates an empty ring at version 0
func NewRing() *Ring {
	r := &Ring{}
	r.state.Store(&RingState{
		entries: []tokenEntry{},
		nodes:   make(map[node.NodeId]Node),
	})
	return r
}

// returns the current ring snapshot, lock free
func (r *Ring) State() *RingState {
	return r.state.Load()
}

func (r *Ring) Version() uint64 {
	return r.State().version
}

// assigns the given tokens to a node, adding the node to the ring
// if it isn't a member yet. Assigning a token already owned by a
// different node fails with a ConflictError and leaves the ring
// untouched
func (r *Ring) AssignTokens(n Node, tokens []partitioner.Token) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	prev := r.state.Load()
	entries := make([]tokenEntry, len(prev.entries), len(prev.entries)+len(tokens))
	copy(entries, prev.entries)

	for _, t := range tokens {
		idx := sort.Search(len(entries), func(i int) bool {
			return t.Cmp(entries[i].token) <= 0
		})
		if idx < len(entries) && entries[idx].token.Equal(t) {
			if entries[idx].owner.GetId() != n.GetId() {
				return NewConflictError(t, entries[idx].owner.GetId(), n.GetId())
			}
			// reassigning a token to its current owner is a no-op
			continue
		}
		entries = append(entries, tokenEntry{})
		copy(entries[idx+1:], entries[idx:])
		entries[idx] = tokenEntry{token: t, owner: n}
	}

	nodes := make(map[node.NodeId]Node, len(prev.nodes)+1)
	for k, v := range prev.nodes {
		nodes[k] = v
	}
	nodes[n.GetId()] = n

	r.state.Store(&RingState{
		version: prev.version + 1,
		entries: entries,
		nodes:   nodes,
	})
	return nil
}

// removes a node and all of its token assignments
func (r *Ring) RemoveNode(nid node.NodeId) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	prev := r.state.Load()
	if _, exists := prev.nodes[nid]; !exists {
		return NewUnknownNodeError(nid)
	}

	entries := make([]tokenEntry, 0, len(prev.entries))
	for _, e := range prev.entries {
		if e.owner.GetId() != nid {
			entries = append(entries, e)
		}
	}

	nodes := make(map[node.NodeId]Node, len(prev.nodes))
	for k, v := range prev.nodes {
		if k != nid {
			nodes[k] = v
		}
	}

	r.state.Store(&RingState{
		version: prev.version + 1,
		entries: entries,
		nodes:   nodes,
	})
	return nil
}
