package hints

import (
	"context"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"
	logging "github.com/op/go-logging"
	"golang.org/x/sync/errgroup"

	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/storage"
)

var logger = logging.MustGetLogger("hints")

// delivers a buffered write to its target replica
type DeliverFn func(ctx context.Context, target node.NodeId, key string, val *storage.Value) error

// buffers writes for unreachable replicas and replays them once
// the replica recovers.
//
// Durability caveat: hints older than the retention window are
// dropped to bound storage growth. A write accepted under degraded
// availability is permanently lost on the hinted path if its target
// stays down past the window. Drops are logged, never silent.
type Handoff struct {
	store     Store
	deliver   DeliverFn
	retention time.Duration
	stats     statsd.Statter
}

func NewHandoff(store Store, deliver DeliverFn, retention time.Duration, stats statsd.Statter) *Handoff {
	return &Handoff{
		store:     store,
		deliver:   deliver,
		retention: retention,
		stats:     stats,
	}
}

func (h *Handoff) incr(stat string) {
	if h.stats != nil {
		h.stats.Inc(stat, 1, 1.0)
	}
}

// records a write that couldn't be delivered to its replica
func (h *Handoff) Record(target node.NodeId, key string, val *storage.Value) error {
	if err := h.store.Put(target, key, val); err != nil {
		return err
	}
	h.incr("hints.recorded")
	logger.Debugf("recorded hint for node %v key %v", target, key)
	return nil
}

// returns the number of hints pending for a target
func (h *Handoff) Pending(target node.NodeId) (int, error) {
	stored, err := h.store.List(target)
	if err != nil {
		return 0, err
	}
	return len(stored), nil
}

func (h *Handoff) expired(val *storage.Value) bool {
	age := time.Duration(storage.Now()-val.Timestamp) * time.Microsecond
	return age > h.retention
}

// delivers all stored hints for a recovered target in timestamp
// order, removing each after successful delivery. Delivery stops at
// the first failure, the target will be retried on its next
// recovery. Expired hints are dropped with a warning: that write is
// gone from this coordinator for good
func (h *Handoff) Replay(ctx context.Context, target node.NodeId) error {
	stored, err := h.store.List(target)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return nil
	}
	logger.Infof("replaying %v hints to node %v", len(stored), target)

	for _, hint := range stored {
		if h.expired(hint.Value) {
			logger.Warningf(
				"dropping hint for node %v key %v: older than the %v retention window, the write is lost on this path",
				target, hint.Key, h.retention)
			h.incr("hints.expired")
			if err := h.store.Remove(target, hint.Key, hint.Value); err != nil {
				return err
			}
			continue
		}

		if err := h.deliver(ctx, target, hint.Key, hint.Value); err != nil {
			logger.Warningf("hint delivery to node %v failed, stopping replay: %v", target, err)
			return err
		}
		if err := h.store.Remove(target, hint.Key, hint.Value); err != nil {
			return err
		}
		h.incr("hints.replayed")
	}
	return nil
}

// replays every target with pending hints, a bounded number of
// targets at a time. Used on coordinator startup
func (h *Handoff) ReplayAll(ctx context.Context) error {
	targets, err := h.store.Targets()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			if err := h.Replay(ctx, target); err != nil {
				// best effort, the next recovery retries
				logger.Warningf("replay to node %v failed: %v", target, err)
			}
			return nil
		})
	}
	return g.Wait()
}
