package hints

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/storage"
	"github.com/southpawdb/southpaw/testhelpers"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"mem":    NewMemStore(),
		"pebble": NewPebbleStore(t.TempDir()),
	}
}

func TestStorePutListRemove(t *testing.T) {
	for name, s := range stores(t) {
		if err := s.Start(); err != nil {
			t.Fatalf("%v: unexpected start error: %v", name, err)
		}

		target := node.NewNodeId()
		nid := node.NewNodeId()
		v := storage.NewValue([]byte("x"), 100, nid)
		if err := s.Put(target, "a", v); err != nil {
			t.Fatalf("%v: unexpected put error: %v", name, err)
		}

		hints, err := s.List(target)
		if err != nil {
			t.Fatalf("%v: unexpected list error: %v", name, err)
		}
		testhelpers.AssertEqual(t, name+" count", 1, len(hints))
		testhelpers.AssertEqual(t, name+" key", "a", hints[0].Key)
		testhelpers.AssertEqual(t, name+" value", true, v.Same(hints[0].Value))

		if err := s.Remove(target, "a", v); err != nil {
			t.Fatalf("%v: unexpected remove error: %v", name, err)
		}
		hints, err = s.List(target)
		if err != nil {
			t.Fatalf("%v: unexpected list error: %v", name, err)
		}
		testhelpers.AssertEqual(t, name+" after remove", 0, len(hints))

		if err := s.Stop(); err != nil {
			t.Fatalf("%v: unexpected stop error: %v", name, err)
		}
	}
}

// a newer hint for the same key replaces the stored one, an older
// one never downgrades it
func TestStoreLastWriterWins(t *testing.T) {
	for name, s := range stores(t) {
		if err := s.Start(); err != nil {
			t.Fatalf("%v: unexpected start error: %v", name, err)
		}

		target := node.NewNodeId()
		nid := node.NewNodeId()
		newer := storage.NewValue([]byte("new"), 200, nid)
		older := storage.NewValue([]byte("old"), 100, nid)

		if err := s.Put(target, "a", newer); err != nil {
			t.Fatalf("%v: unexpected put error: %v", name, err)
		}
		if err := s.Put(target, "a", older); err != nil {
			t.Fatalf("%v: unexpected put error: %v", name, err)
		}

		hints, err := s.List(target)
		if err != nil {
			t.Fatalf("%v: unexpected list error: %v", name, err)
		}
		testhelpers.AssertEqual(t, name+" count", 1, len(hints))
		testhelpers.AssertEqual(t, name+" kept newer", true, newer.Same(hints[0].Value))

		// removing with the older value must not drop the newer hint
		if err := s.Remove(target, "a", older); err != nil {
			t.Fatalf("%v: unexpected remove error: %v", name, err)
		}
		hints, _ = s.List(target)
		testhelpers.AssertEqual(t, name+" still stored", 1, len(hints))

		if err := s.Stop(); err != nil {
			t.Fatalf("%v: unexpected stop error: %v", name, err)
		}
	}
}

func TestStoreListTimestampOrder(t *testing.T) {
	for name, s := range stores(t) {
		if err := s.Start(); err != nil {
			t.Fatalf("%v: unexpected start error: %v", name, err)
		}

		target := node.NewNodeId()
		nid := node.NewNodeId()
		// stored out of timestamp order
		for i, ts := range []int64{300, 100, 200} {
			key := fmt.Sprintf("k%v", i)
			if err := s.Put(target, key, storage.NewValue([]byte(key), ts, nid)); err != nil {
				t.Fatalf("%v: unexpected put error: %v", name, err)
			}
		}

		hints, err := s.List(target)
		if err != nil {
			t.Fatalf("%v: unexpected list error: %v", name, err)
		}
		testhelpers.AssertEqual(t, name+" count", 3, len(hints))
		for i := 1; i < len(hints); i++ {
			if hints[i-1].Value.Timestamp > hints[i].Value.Timestamp {
				t.Errorf("%v: hints out of timestamp order: %v", name, hints)
			}
		}

		if err := s.Stop(); err != nil {
			t.Fatalf("%v: unexpected stop error: %v", name, err)
		}
	}
}

func TestStoreTargets(t *testing.T) {
	for name, s := range stores(t) {
		if err := s.Start(); err != nil {
			t.Fatalf("%v: unexpected start error: %v", name, err)
		}

		t1 := node.NewNodeId()
		t2 := node.NewNodeId()
		nid := node.NewNodeId()
		if err := s.Put(t1, "a", storage.NewValue([]byte("x"), 100, nid)); err != nil {
			t.Fatalf("%v: unexpected put error: %v", name, err)
		}
		if err := s.Put(t2, "b", storage.NewValue([]byte("y"), 100, nid)); err != nil {
			t.Fatalf("%v: unexpected put error: %v", name, err)
		}

		targets, err := s.Targets()
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", name, err)
		}
		testhelpers.AssertEqual(t, name+" count", 2, len(targets))

		if err := s.Stop(); err != nil {
			t.Fatalf("%v: unexpected stop error: %v", name, err)
		}
	}
}

// hints must survive a store restart
func TestPebbleStorePersistence(t *testing.T) {
	dir := t.TempDir()
	target := node.NewNodeId()
	v := storage.NewValue([]byte("x"), 100, node.NewNodeId())

	s := NewPebbleStore(dir)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := s.Put(target, "a", v); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	s = NewPebbleStore(dir)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer s.Stop()
	hints, err := s.List(target)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	testhelpers.AssertEqual(t, "count", 1, len(hints))
	testhelpers.AssertEqual(t, "value", true, v.Same(hints[0].Value))
}

type delivery struct {
	target node.NodeId
	key    string
	val    *storage.Value
}

func TestReplayDeliversInOrderAndRemoves(t *testing.T) {
	store := NewMemStore()
	delivered := make([]delivery, 0)
	deliver := func(ctx context.Context, target node.NodeId, key string, val *storage.Value) error {
		delivered = append(delivered, delivery{target, key, val})
		return nil
	}
	h := NewHandoff(store, deliver, time.Hour, nil)

	target := node.NewNodeId()
	nid := node.NewNodeId()
	now := storage.Now()
	if err := h.Record(target, "b", storage.NewValue([]byte("2"), now+1, nid)); err != nil {
		t.Fatalf("unexpected record error: %v", err)
	}
	if err := h.Record(target, "a", storage.NewValue([]byte("1"), now, nid)); err != nil {
		t.Fatalf("unexpected record error: %v", err)
	}

	if err := h.Replay(context.Background(), target); err != nil {
		t.Fatalf("unexpected replay error: %v", err)
	}

	testhelpers.AssertEqual(t, "deliveries", 2, len(delivered))
	testhelpers.AssertEqual(t, "first", "a", delivered[0].key)
	testhelpers.AssertEqual(t, "second", "b", delivered[1].key)

	pending, err := h.Pending(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testhelpers.AssertEqual(t, "pending", 0, pending)
}

// delivery failure stops the replay, hints stay stored for the
// next recovery
func TestReplayStopsOnFailure(t *testing.T) {
	store := NewMemStore()
	calls := 0
	deliver := func(ctx context.Context, target node.NodeId, key string, val *storage.Value) error {
		calls++
		return fmt.Errorf("target went away again")
	}
	h := NewHandoff(store, deliver, time.Hour, nil)

	target := node.NewNodeId()
	nid := node.NewNodeId()
	now := storage.Now()
	h.Record(target, "a", storage.NewValue([]byte("1"), now, nid))
	h.Record(target, "b", storage.NewValue([]byte("2"), now+1, nid))

	if err := h.Replay(context.Background(), target); err == nil {
		t.Fatal("expected replay error, got nil")
	}
	testhelpers.AssertEqual(t, "calls", 1, calls)

	pending, _ := h.Pending(target)
	testhelpers.AssertEqual(t, "pending", 2, pending)
}

// hints past the retention window are dropped, not delivered
func TestReplayDropsExpiredHints(t *testing.T) {
	store := NewMemStore()
	delivered := 0
	deliver := func(ctx context.Context, target node.NodeId, key string, val *storage.Value) error {
		delivered++
		return nil
	}
	h := NewHandoff(store, deliver, time.Minute, nil)

	target := node.NewNodeId()
	nid := node.NewNodeId()
	stale := storage.Now() - time.Hour.Microseconds()
	h.Record(target, "old", storage.NewValue([]byte("1"), stale, nid))
	h.Record(target, "new", storage.NewValue([]byte("2"), storage.Now(), nid))

	if err := h.Replay(context.Background(), target); err != nil {
		t.Fatalf("unexpected replay error: %v", err)
	}
	testhelpers.AssertEqual(t, "delivered", 1, delivered)

	pending, _ := h.Pending(target)
	testhelpers.AssertEqual(t, "pending", 0, pending)
}

func TestReplayAll(t *testing.T) {
	store := NewMemStore()
	delivered := make(chan node.NodeId, 10)
	deliver := func(ctx context.Context, target node.NodeId, key string, val *storage.Value) error {
		delivered <- target
		return nil
	}
	h := NewHandoff(store, deliver, time.Hour, nil)

	nid := node.NewNodeId()
	t1 := node.NewNodeId()
	t2 := node.NewNodeId()
	h.Record(t1, "a", storage.NewValue([]byte("1"), storage.Now(), nid))
	h.Record(t2, "b", storage.NewValue([]byte("2"), storage.Now(), nid))

	if err := h.ReplayAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(delivered)
	count := 0
	for range delivered {
		count++
	}
	testhelpers.AssertEqual(t, "deliveries", 2, count)
}
