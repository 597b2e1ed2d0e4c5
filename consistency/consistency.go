/**
Consistency levels and the quorum arithmetic used by the coordinator.

A level is resolved to the minimum number of replica acknowledgments
required before an operation succeeds. The mapping is a pure function
of the level and the replication factor, there is no per level behavior
beyond the ack threshold.
*/
package consistency

import (
	"fmt"
)

type Level string

const (
	CONSISTENCY_ONE    = Level("ONE")
	CONSISTENCY_QUORUM = Level("QUORUM")
	CONSISTENCY_ALL    = Level("ALL")
)

// parses a consistency level from its string form
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case CONSISTENCY_ONE, CONSISTENCY_QUORUM, CONSISTENCY_ALL:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown consistency level: %v", s)
}

// returns the minimum number of replica acks required for
// an operation at the given level to succeed
//
// a replication factor of 1 collapses QUORUM and ALL to ONE
func RequiredAcks(level Level, replicationFactor int) (int, error) {
	if replicationFactor < 1 {
		return 0, fmt.Errorf("invalid replication factor: %v", replicationFactor)
	}
	switch level {
	case CONSISTENCY_ONE:
		return 1, nil
	case CONSISTENCY_QUORUM:
		return (replicationFactor / 2) + 1, nil
	case CONSISTENCY_ALL:
		return replicationFactor, nil
	}
	return 0, fmt.Errorf("unknown consistency level: %v", level)
}

// reports whether enough replicas are reachable to satisfy the
// given level. The coordinator rejects unsatisfiable operations
// before dispatch instead of waiting for timeouts
func IsSatisfiable(level Level, replicationFactor int, liveReplicas int) (bool, error) {
	required, err := RequiredAcks(level, replicationFactor)
	if err != nil {
		return false, err
	}
	return liveReplicas >= required, nil
}
