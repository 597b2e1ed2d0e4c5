package cluster

import (
	"context"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"

	"github.com/southpawdb/southpaw/storage"
)

// pushes the authoritative value for a key back to replicas that
// returned something older. Best effort: one attempt per replica,
// failures are logged and left for a later read or an anti-entropy
// pass to catch. Never touches the client-visible read result,
// which has already returned
type readRepairer struct {
	timeout time.Duration
	stats   statsd.Statter
}

func newReadRepairer(timeout time.Duration, stats statsd.Statter) *readRepairer {
	return &readRepairer{timeout: timeout, stats: stats}
}

func (r *readRepairer) incr(stat string) {
	if r.stats != nil {
		r.stats.Inc(stat, 1, 1.0)
	}
}

// fires a repair write at each stale replica. Runs on its own
// deadline, repair is exempt from the originating read's deadline
func (r *readRepairer) repair(key string, authoritative *storage.Value, stale []Replica) {
	for _, replica := range stale {
		go func(replica Replica) {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()

			r.incr("repair.attempted")
			if err := replica.Write(ctx, key, authoritative); err != nil {
				r.incr("repair.failed")
				logger.Warningf("read repair of key %v on node %v failed: %v", key, replica.Name(), err)
			} else {
				logger.Debugf("repaired key %v on node %v", key, replica.Name())
			}
		}(replica)
	}
}
