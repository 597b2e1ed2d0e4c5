package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"

	"github.com/southpawdb/southpaw/consistency"
	"github.com/southpawdb/southpaw/detector"
	"github.com/southpawdb/southpaw/hints"
	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/partitioner"
	"github.com/southpawdb/southpaw/storage"
	"github.com/southpawdb/southpaw/topology"
)

type Options struct {
	Name string
	Addr string
	Rack string

	NodeId      node.NodeId
	Tokens      []partitioner.Token
	Partitioner partitioner.Partitioner
	Strategy    topology.Strategy

	ReplicationFactor int
	RequestTimeout    time.Duration

	HeartbeatInterval  time.Duration
	HeartbeatThreshold int

	HintRetention time.Duration

	Engine    storage.Engine
	HintStore hints.Store
	Stats     statsd.Statter
}

// ties the local node, the ring, failure detection and hinted
// handoff together behind the client facing api
type Cluster struct {
	name        string
	localNode   *LocalNode
	ring        *topology.Ring
	resolver    *topology.Resolver
	detector    *detector.Detector
	handoff     *hints.Handoff
	coordinator *Coordinator
	service     *QueryService

	engine    storage.Engine
	hintStore hints.Store
}

func NewCluster(opts Options) (*Cluster, error) {
	if opts.ReplicationFactor < 1 {
		return nil, fmt.Errorf("invalid replication factor: %v", opts.ReplicationFactor)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("a storage engine is required")
	}
	if opts.HintStore == nil {
		return nil, fmt.Errorf("a hint store is required")
	}
	if opts.Partitioner == nil {
		opts.Partitioner = partitioner.NewMurmur3Partitioner()
	}
	if opts.Strategy == nil {
		opts.Strategy = topology.SimpleStrategy{}
	}
	if opts.NodeId == "" {
		opts.NodeId = node.NewNodeId()
	}

	c := &Cluster{
		name:      opts.Name,
		engine:    opts.Engine,
		hintStore: opts.HintStore,
	}
	c.localNode = NewLocalNode(opts.NodeId, opts.Name, opts.Addr, opts.Rack, opts.Engine)
	c.service = NewQueryService(c.localNode)
	c.service.OnHeartbeat(func(nid node.NodeId) { c.Heartbeat(nid) })
	c.ring = topology.NewRing()
	c.resolver = topology.NewResolver(c.ring, opts.Partitioner, opts.Strategy, opts.ReplicationFactor)
	c.detector = detector.NewDetector(opts.HeartbeatInterval, opts.HeartbeatThreshold)
	c.handoff = hints.NewHandoff(opts.HintStore, c.deliverHint, opts.HintRetention, opts.Stats)
	c.coordinator = NewCoordinator(opts.NodeId, c.resolver, c.detector, c.handoff, opts.RequestTimeout, opts.Stats)

	// recovered nodes get their buffered writes replayed
	c.detector.OnRecovery(func(nid node.NodeId) {
		ctx, cancel := context.WithTimeout(context.Background(), opts.RequestTimeout)
		defer cancel()
		if err := c.handoff.Replay(ctx, nid); err != nil {
			logger.Warningf("hint replay to node %v failed: %v", nid, err)
		}
	})

	if err := c.ring.AssignTokens(c.localNode, opts.Tokens); err != nil {
		return nil, err
	}
	c.detector.Register(opts.NodeId)
	return c, nil
}

func (c *Cluster) Start() error {
	if err := c.engine.Start(); err != nil {
		return err
	}
	if err := c.hintStore.Start(); err != nil {
		return err
	}
	c.detector.Start()
	logger.Infof("cluster %v started, local node %v", c.name, c.localNode.GetId())
	return nil
}

func (c *Cluster) Stop() error {
	c.detector.Stop()
	if err := c.hintStore.Stop(); err != nil {
		return err
	}
	return c.engine.Stop()
}

func (c *Cluster) LocalNode() *LocalNode {
	return c.localNode
}

func (c *Cluster) Service() *QueryService {
	return c.service
}

func (c *Cluster) Ring() *topology.Ring {
	return c.ring
}

// adds a peer to the ring, assigning it the given tokens. Called
// by the membership layer on join events
func (c *Cluster) AddNode(replica Replica, tokens []partitioner.Token) error {
	if err := c.ring.AssignTokens(replica, tokens); err != nil {
		return err
	}
	c.detector.Register(replica.GetId())
	return nil
}

// removes a decommissioned peer. Called by the membership layer on
// leave events
func (c *Cluster) RemoveNode(nid node.NodeId) error {
	if err := c.ring.RemoveNode(nid); err != nil {
		return err
	}
	c.detector.Deregister(nid)
	return nil
}

// records a peer heartbeat. Called by the membership layer
func (c *Cluster) Heartbeat(nid node.NodeId) {
	c.detector.Heartbeat(nid)
}

// ----------- client facing api -----------

func (c *Cluster) Put(ctx context.Context, key string, data []byte, level consistency.Level) (*WriteResult, error) {
	return c.coordinator.Put(ctx, key, data, level)
}

func (c *Cluster) Get(ctx context.Context, key string, level consistency.Level) (*ReadResult, error) {
	return c.coordinator.Get(ctx, key, level)
}

func (c *Cluster) Delete(ctx context.Context, key string, level consistency.Level) (*WriteResult, error) {
	return c.coordinator.Delete(ctx, key, level)
}

func (c *Cluster) Status() *ClusterStatus {
	return c.coordinator.ClusterStatus()
}

// delivers a replayed hint to its target through the ring
func (c *Cluster) deliverHint(ctx context.Context, target node.NodeId, key string, val *storage.Value) error {
	n, ok := c.ring.State().GetNode(target)
	if !ok {
		return fmt.Errorf("hint target %v is no longer a ring member", target)
	}
	replica, ok := n.(Replica)
	if !ok {
		return fmt.Errorf("ring member %v does not execute operations (%T)", n.Name(), n)
	}
	return replica.Write(ctx, key, val)
}
