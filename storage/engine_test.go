package storage

import (
	"sort"
	"testing"

	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/testhelpers"
)

func engines(t *testing.T) map[string]Engine {
	return map[string]Engine{
		"mem":    NewMemEngine(),
		"pebble": NewPebbleEngine(t.TempDir()),
	}
}

func TestEngineGetPut(t *testing.T) {
	for name, e := range engines(t) {
		if err := e.Start(); err != nil {
			t.Fatalf("%v: unexpected start error: %v", name, err)
		}

		missing, err := e.Get("a")
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", name, err)
		}
		if missing != nil {
			t.Errorf("%v: expected nil for missing key, got %v", name, missing)
		}

		v := NewValue([]byte("b"), Now(), node.NewNodeId())
		if err := e.Put("a", v); err != nil {
			t.Fatalf("%v: unexpected put error: %v", name, err)
		}

		actual, err := e.Get("a")
		if err != nil {
			t.Fatalf("%v: unexpected get error: %v", name, err)
		}
		if actual == nil || !actual.Same(v) {
			t.Errorf("%v: expected %v, got %v", name, v, actual)
		}

		if err := e.Stop(); err != nil {
			t.Fatalf("%v: unexpected stop error: %v", name, err)
		}
	}
}

func TestEngineOverwrite(t *testing.T) {
	for name, e := range engines(t) {
		if err := e.Start(); err != nil {
			t.Fatalf("%v: unexpected start error: %v", name, err)
		}

		nid := node.NewNodeId()
		if err := e.Put("a", NewValue([]byte("x"), 100, nid)); err != nil {
			t.Fatalf("%v: unexpected put error: %v", name, err)
		}
		v2 := NewValue([]byte("y"), 200, nid)
		if err := e.Put("a", v2); err != nil {
			t.Fatalf("%v: unexpected put error: %v", name, err)
		}

		actual, err := e.Get("a")
		if err != nil {
			t.Fatalf("%v: unexpected get error: %v", name, err)
		}
		if !actual.Same(v2) {
			t.Errorf("%v: expected %v, got %v", name, v2, actual)
		}

		if err := e.Stop(); err != nil {
			t.Fatalf("%v: unexpected stop error: %v", name, err)
		}
	}
}

func TestEngineKeys(t *testing.T) {
	for name, e := range engines(t) {
		if err := e.Start(); err != nil {
			t.Fatalf("%v: unexpected start error: %v", name, err)
		}

		nid := node.NewNodeId()
		for _, k := range []string{"c", "a", "b"} {
			if err := e.Put(k, NewValue([]byte(k), Now(), nid)); err != nil {
				t.Fatalf("%v: unexpected put error: %v", name, err)
			}
		}

		keys, err := e.Keys()
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", name, err)
		}
		sort.Strings(keys)
		testhelpers.AssertStringArrayEqual(t, name, []string{"a", "b", "c"}, keys)

		if err := e.Stop(); err != nil {
			t.Fatalf("%v: unexpected stop error: %v", name, err)
		}
	}
}

// values must survive an engine restart
func TestPebblePersistence(t *testing.T) {
	dir := t.TempDir()
	nid := node.NewNodeId()
	v := NewValue([]byte("durable"), Now(), nid)

	e := NewPebbleEngine(dir)
	if err := e.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := e.Put("a", v); err != nil {
		t.Fatalf("unexpected put error: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	e = NewPebbleEngine(dir)
	if err := e.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer e.Stop()

	actual, err := e.Get("a")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if actual == nil || !actual.Same(v) {
		t.Errorf("expected %v after restart, got %v", v, actual)
	}
}
