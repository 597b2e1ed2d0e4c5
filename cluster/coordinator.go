/**
Coordination of client operations across replicas.

The coordinator resolves the replica set for a key, fans the
operation out to every live replica in parallel and returns as soon
as the consistency level's ack threshold is reached or the operation
deadline passes. Writes for unreachable replicas are handed to
hinted handoff instead of being attempted, reads that observe
divergent replicas schedule read repair off the client path.
*/
package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"
	logging "github.com/op/go-logging"

	"github.com/southpawdb/southpaw/consistency"
	"github.com/southpawdb/southpaw/detector"
	"github.com/southpawdb/southpaw/hints"
	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/storage"
	"github.com/southpawdb/southpaw/topology"
)

var logger = logging.MustGetLogger("cluster")

type WriteResult struct {
	Acked       int
	Level       consistency.Level
	Replicas    []node.NodeId
	RingVersion uint64
}

type ReadResult struct {
	Value       []byte
	Timestamp   int64
	Acked       int
	Level       consistency.Level
	Replicas    []node.NodeId
	RingVersion uint64
}

type Coordinator struct {
	nodeID   node.NodeId
	resolver *topology.Resolver
	detector *detector.Detector
	handoff  *hints.Handoff
	repairer *readRepairer
	timeout  time.Duration
	stats    statsd.Statter
}

func NewCoordinator(
	nodeID node.NodeId,
	resolver *topology.Resolver,
	det *detector.Detector,
	handoff *hints.Handoff,
	timeout time.Duration,
	stats statsd.Statter,
) *Coordinator {
	return &Coordinator{
		nodeID:   nodeID,
		resolver: resolver,
		detector: det,
		handoff:  handoff,
		repairer: newReadRepairer(timeout, stats),
		timeout:  timeout,
		stats:    stats,
	}
}

func (c *Coordinator) incr(stat string) {
	if c.stats != nil {
		c.stats.Inc(stat, 1, 1.0)
	}
}

func (c *Coordinator) timing(stat string, start time.Time) {
	if c.stats != nil {
		c.stats.TimingDuration(stat, time.Since(start), 1.0)
	}
}

// splits a replica set into live and unreachable replicas using the
// failure detector's current view
func (c *Coordinator) partition(rs topology.ReplicaSet) (live []Replica, down []Replica, err error) {
	live = make([]Replica, 0, len(rs.Replicas))
	down = make([]Replica, 0)
	for _, n := range rs.Replicas {
		replica, ok := n.(Replica)
		if !ok {
			return nil, nil, fmt.Errorf("ring member %v does not execute operations (%T)", n.Name(), n)
		}
		if c.detector.IsLive(n.GetId()) {
			live = append(live, replica)
		} else {
			down = append(down, replica)
		}
	}
	return live, down, nil
}

// ----------- writes -----------

// stores a value for key at the requested consistency level
func (c *Coordinator) Put(ctx context.Context, key string, data []byte, level consistency.Level) (*WriteResult, error) {
	return c.write(ctx, key, storage.NewValue(data, storage.Now(), c.nodeID), level)
}

// a delete is a write of a tombstone value and follows the
// write path exactly
func (c *Coordinator) Delete(ctx context.Context, key string, level consistency.Level) (*WriteResult, error) {
	return c.write(ctx, key, storage.NewTombstone(storage.Now(), c.nodeID), level)
}

func (c *Coordinator) write(ctx context.Context, key string, val *storage.Value, level consistency.Level) (*WriteResult, error) {
	start := time.Now()

	rs := c.resolver.Resolve(key)
	if rs.Size() == 0 {
		return nil, NewUnavailableError(level, 1, 0, nil)
	}
	required, err := consistency.RequiredAcks(level, rs.Size())
	if err != nil {
		return nil, err
	}

	live, down, err := c.partition(rs)
	if err != nil {
		return nil, err
	}

	// fail fast instead of waiting for timeouts
	if len(live) < required {
		c.incr("write.unavailable")
		return nil, NewUnavailableError(level, required, len(live), rs.NodeIds())
	}

	// unreachable replicas get a hint instead of a delivery attempt
	for _, replica := range down {
		if err := c.handoff.Record(replica.GetId(), key, val); err != nil {
			logger.Errorf("recording hint for node %v failed: %v", replica.Name(), err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ackChan := make(chan node.NodeId, len(live))
	sendWrite := func(replica Replica) {
		if err := replica.Write(ctx, key, val); err != nil {
			logger.Warningf("write to node %v failed: %v", replica.Name(), err)
		} else {
			ackChan <- replica.GetId()
		}
	}
	for _, replica := range live {
		go sendWrite(replica)
	}

	acked := 0
	for acked < required {
		select {
		case <-ackChan:
			acked++
		case <-ctx.Done():
			c.incr("write.timeout")
			return nil, NewTimeoutError(level, acked, required, rs.NodeIds())
		}
	}

	c.incr("write.success")
	c.timing("write.latency", start)
	return &WriteResult{
		Acked:       acked,
		Level:       level,
		Replicas:    rs.NodeIds(),
		RingVersion: rs.RingVersion,
	}, nil
}

// ----------- reads -----------

type readReply struct {
	replica Replica
	val     *storage.Value
	err     error
}

// returns the most recent value for key readable at the requested
// consistency level. Reads go to every live replica, not just the
// ack threshold, so divergent replicas can be repaired
func (c *Coordinator) Get(ctx context.Context, key string, level consistency.Level) (*ReadResult, error) {
	start := time.Now()

	rs := c.resolver.Resolve(key)
	if rs.Size() == 0 {
		return nil, NewUnavailableError(level, 1, 0, nil)
	}
	required, err := consistency.RequiredAcks(level, rs.Size())
	if err != nil {
		return nil, err
	}

	live, _, err := c.partition(rs)
	if err != nil {
		return nil, err
	}
	if len(live) < required {
		c.incr("read.unavailable")
		return nil, NewUnavailableError(level, required, len(live), rs.NodeIds())
	}

	// the straggler drain goroutine owns cancellation
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	respChan := make(chan *readReply, len(live))
	sendRead := func(replica Replica) {
		val, err := replica.Read(ctx, key)
		respChan <- &readReply{replica: replica, val: val, err: err}
	}
	for _, replica := range live {
		go sendRead(replica)
	}

	replies := make([]*readReply, 0, len(live))
	acked := 0
	failed := 0
	for acked < required {
		select {
		case reply := <-respChan:
			if reply.err != nil {
				failed++
				logger.Warningf("read from node %v failed: %v", reply.replica.Name(), reply.err)
				if failed > len(live)-required {
					// the threshold is no longer reachable
					cancel()
					c.incr("read.timeout")
					return nil, NewTimeoutError(level, acked, required, rs.NodeIds())
				}
			} else {
				replies = append(replies, reply)
				acked++
			}
		case <-ctx.Done():
			cancel()
			c.incr("read.timeout")
			return nil, NewTimeoutError(level, acked, required, rs.NodeIds())
		}
	}

	authoritative := newestValue(replies)

	// collect stragglers and fire repair off the client path
	remaining := len(live) - acked - failed
	go c.finishRead(ctx, cancel, key, replies, respChan, remaining)

	c.timing("read.latency", start)
	if authoritative == nil || authoritative.Tombstone {
		c.incr("read.miss")
		return nil, NewNotFoundError(key, level, acked, rs.NodeIds())
	}
	c.incr("read.success")
	return &ReadResult{
		Value:       authoritative.Data,
		Timestamp:   authoritative.Timestamp,
		Acked:       acked,
		Level:       level,
		Replicas:    rs.NodeIds(),
		RingVersion: rs.RingVersion,
	}, nil
}

// returns the value winning last-writer-wins resolution across the
// replies, nil when every replica reported absence
func newestValue(replies []*readReply) *storage.Value {
	var newest *storage.Value
	for _, reply := range replies {
		if reply.val != nil && reply.val.Supersedes(newest) {
			newest = reply.val
		}
	}
	return newest
}

// drains the responses that arrived after the ack threshold, then
// schedules repair for every replica that disagrees with the newest
// value observed. Runs off the client path, the read already
// returned
func (c *Coordinator) finishRead(ctx context.Context, cancel context.CancelFunc, key string, replies []*readReply, respChan chan *readReply, remaining int) {
	defer cancel()
	for remaining > 0 {
		select {
		case reply := <-respChan:
			remaining--
			if reply.err == nil {
				replies = append(replies, reply)
			}
		case <-ctx.Done():
			remaining = 0
		}
	}

	authoritative := newestValue(replies)
	if authoritative == nil {
		return
	}
	stale := make([]Replica, 0)
	for _, reply := range replies {
		if reply.val == nil || !reply.val.Same(authoritative) {
			stale = append(stale, reply.replica)
		}
	}
	if len(stale) > 0 {
		c.repairer.repair(key, authoritative, stale)
	}
}
