package cluster

import (
	"context"
	"testing"
	"time"

	"gopkg.in/check.v1"

	"github.com/southpawdb/southpaw/consistency"
	"github.com/southpawdb/southpaw/hints"
	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/partitioner"
	"github.com/southpawdb/southpaw/storage"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) {
	check.TestingT(t)
}

type ClusterTest struct {
	cluster *Cluster
	peers   []*mockReplica
}

var _ = check.Suite(&ClusterTest{})

func (s *ClusterTest) testOptions() Options {
	return Options{
		Name:               "test cluster",
		Addr:               "127.0.0.1:9999",
		Rack:               "rack1",
		Tokens:             []partitioner.Token{{10}},
		Partitioner:        fixedPartitioner{},
		ReplicationFactor:  3,
		RequestTimeout:     time.Millisecond * 100,
		HeartbeatInterval:  time.Second,
		HeartbeatThreshold: 3,
		HintRetention:      time.Hour,
		Engine:             storage.NewMemEngine(),
		HintStore:          hints.NewMemStore(),
	}
}

func (s *ClusterTest) SetUpTest(c *check.C) {
	cluster, err := NewCluster(s.testOptions())
	c.Assert(err, check.IsNil)
	c.Assert(cluster.Start(), check.IsNil)
	s.cluster = cluster

	s.peers = make([]*mockReplica, 2)
	for i := range s.peers {
		peer := newMockReplica("peer", "rack1")
		s.peers[i] = peer
		tokens := []partitioner.Token{{byte((i + 2) * 10)}}
		c.Assert(cluster.AddNode(peer, tokens), check.IsNil)
	}
}

func (s *ClusterTest) TearDownTest(c *check.C) {
	c.Assert(s.cluster.Stop(), check.IsNil)
}

func (s *ClusterTest) TestConstructorValidation(c *check.C) {
	opts := s.testOptions()
	opts.Engine = nil
	_, err := NewCluster(opts)
	c.Assert(err, check.NotNil)

	opts = s.testOptions()
	opts.HintStore = nil
	_, err = NewCluster(opts)
	c.Assert(err, check.NotNil)

	opts = s.testOptions()
	opts.ReplicationFactor = 0
	_, err = NewCluster(opts)
	c.Assert(err, check.NotNil)
}

func (s *ClusterTest) TestConstructorDefaults(c *check.C) {
	opts := s.testOptions()
	opts.NodeId = ""
	opts.Partitioner = nil
	opts.Strategy = nil

	cluster, err := NewCluster(opts)
	c.Assert(err, check.IsNil)
	c.Assert(cluster.LocalNode().GetId(), check.Not(check.Equals), node.NodeId(""))
}

func (s *ClusterTest) TestMembershipChangesVersionTheRing(c *check.C) {
	// local node plus two peers, one token each
	c.Assert(s.cluster.Ring().Version(), check.Equals, uint64(3))
	c.Assert(s.cluster.Ring().State().Size(), check.Equals, 3)

	c.Assert(s.cluster.RemoveNode(s.peers[1].GetId()), check.IsNil)
	c.Assert(s.cluster.Ring().Version(), check.Equals, uint64(4))
	c.Assert(s.cluster.Ring().State().Size(), check.Equals, 2)
}

func (s *ClusterTest) TestStatusListsAllMembers(c *check.C) {
	status := s.cluster.Status()
	c.Assert(len(status.Nodes), check.Equals, 3)
	for _, n := range status.Nodes {
		c.Assert(n.Status, check.Equals, node.STATUS_UP)
	}
}

func (s *ClusterTest) TestPutGetDelete(c *check.C) {
	ctx := context.Background()

	result, err := s.cluster.Put(ctx, "k", []byte("v"), consistency.CONSISTENCY_QUORUM)
	c.Assert(err, check.IsNil)
	c.Assert(result.Acked >= 2, check.Equals, true)

	read, err := s.cluster.Get(ctx, "k", consistency.CONSISTENCY_QUORUM)
	c.Assert(err, check.IsNil)
	c.Assert(string(read.Value), check.Equals, "v")

	_, err = s.cluster.Delete(ctx, "k", consistency.CONSISTENCY_QUORUM)
	c.Assert(err, check.IsNil)

	_, err = s.cluster.Get(ctx, "k", consistency.CONSISTENCY_QUORUM)
	c.Assert(err, check.FitsTypeOf, &NotFoundError{})
}

func (s *ClusterTest) TestWriteLandsOnLocalEngine(c *check.C) {
	_, err := s.cluster.Put(context.Background(), "k", []byte("v"), consistency.CONSISTENCY_ALL)
	c.Assert(err, check.IsNil)

	val, err := s.cluster.LocalNode().Read(context.Background(), "k")
	c.Assert(err, check.IsNil)
	c.Assert(val, check.NotNil)
	c.Assert(string(val.Data), check.Equals, "v")
}

// a peer that misses its heartbeats is marked DOWN, writes for it
// are hinted, and its first heartbeat after recovery triggers replay
func (s *ClusterTest) TestHeartbeatRecoveryReplaysHints(c *check.C) {
	// a dedicated cluster with a fast detector, the suite's is
	// deliberately too slow to mark anything down mid test
	opts := s.testOptions()
	opts.HeartbeatInterval = time.Millisecond * 20
	opts.HeartbeatThreshold = 2
	cluster, err := NewCluster(opts)
	c.Assert(err, check.IsNil)
	c.Assert(cluster.Start(), check.IsNil)
	defer cluster.Stop()

	peers := make([]*mockReplica, 2)
	for i := range peers {
		peers[i] = newMockReplica("peer", "rack1")
		tokens := []partitioner.Token{{byte((i + 2) * 10)}}
		c.Assert(cluster.AddNode(peers[i], tokens), check.IsNil)
	}

	target := peers[1]
	live := []node.NodeId{cluster.LocalNode().GetId(), peers[0].GetId()}

	// keep everyone but the target alive until the detector
	// notices the silence
	heartbeatUntil := func(condition func() bool) bool {
		deadline := time.Now().Add(time.Second * 2)
		for time.Now().Before(deadline) {
			for _, nid := range live {
				cluster.Heartbeat(nid)
			}
			if condition() {
				return true
			}
			time.Sleep(time.Millisecond * 5)
		}
		return false
	}

	isDown := func() bool {
		for _, n := range cluster.Status().Nodes {
			if n.Id == target.GetId() {
				return n.Status == node.STATUS_DOWN
			}
		}
		return false
	}
	c.Assert(heartbeatUntil(isDown), check.Equals, true)

	_, err = cluster.Put(context.Background(), "k", []byte("v"), consistency.CONSISTENCY_QUORUM)
	c.Assert(err, check.IsNil)
	pending, err := cluster.handoff.Pending(target.GetId())
	c.Assert(err, check.IsNil)
	c.Assert(pending, check.Equals, 1)

	// recovery
	cluster.Heartbeat(target.GetId())
	delivered := func() bool {
		val := target.getValue("k")
		return val != nil && string(val.Data) == "v"
	}
	c.Assert(heartbeatUntil(delivered), check.Equals, true)
}
