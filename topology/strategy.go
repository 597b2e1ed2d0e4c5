package topology

import (
	"github.com/southpawdb/southpaw/partitioner"
)

// decides which nodes replicate a token. Strategies are pure
// functions of a ring snapshot, two calls with the same state
// and inputs return identical ordered results
type Strategy interface {
	Name() string

	// returns the ordered replica nodes for the given token
	Replicas(state *RingState, t partitioner.Token, replicationFactor int) []Node
}

// a direct ring walk
type SimpleStrategy struct{}

func (s SimpleStrategy) Name() string {
	return "simple"
}

func (s SimpleStrategy) Replicas(state *RingState, t partitioner.Token, replicationFactor int) []Node {
	return state.Walk(t, replicationFactor)
}

// a ring walk that spreads replicas across racks. Candidates on
// an already used rack are skipped while unused racks remain, then
// revisited in walk order to fill out the set, so resolution never
// fails even when every node shares a rack
type RackAwareStrategy struct{}

func (s RackAwareStrategy) Name() string {
	return "rack_aware"
}

func (s RackAwareStrategy) Replicas(state *RingState, t partitioner.Token, replicationFactor int) []Node {
	candidates := state.Walk(t, state.Size())
	if replicationFactor > len(candidates) {
		replicationFactor = len(candidates)
	}

	replicas := make([]Node, 0, replicationFactor)
	usedRacks := make(map[string]bool, replicationFactor)
	skipped := make([]Node, 0)

	for _, n := range candidates {
		if len(replicas) >= replicationFactor {
			break
		}
		if usedRacks[n.GetRack()] {
			skipped = append(skipped, n)
			continue
		}
		usedRacks[n.GetRack()] = true
		replicas = append(replicas, n)
	}

	// fall back to same rack placement when there aren't
	// enough distinct racks
	for _, n := range skipped {
		if len(replicas) >= replicationFactor {
			break
		}
		replicas = append(replicas, n)
	}
	return replicas
}
