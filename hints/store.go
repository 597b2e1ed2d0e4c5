/**
Hint storage for writes that couldn't reach a replica.

A hint is the durable record of a write accepted for a target that
was unreachable at write time. Hints are keyed by (target, key): a
newer write for the same key replaces the hint, older writes never
downgrade it.
*/
package hints

import (
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/southpawdb/southpaw/node"
	"github.com/southpawdb/southpaw/storage"
)

type Hint struct {
	Target node.NodeId
	Key    string
	Value  *storage.Value
}

type Store interface {
	Start() error
	Stop() error

	// records a hint, replacing any existing hint for
	// (target, key) that the value supersedes
	Put(target node.NodeId, key string, val *storage.Value) error

	// returns the hints stored for a target in timestamp order
	List(target node.NodeId) ([]Hint, error)

	// removes the hint for (target, key) if its value doesn't
	// supersede the given one
	Remove(target node.NodeId, key string, val *storage.Value) error

	// returns the targets with at least one stored hint
	Targets() ([]node.NodeId, error)
}

// orders hints by value timestamp, node id breaking ties
func sortHints(hints []Hint) {
	sort.Slice(hints, func(i, j int) bool {
		return hints[j].Value.Supersedes(hints[i].Value)
	})
}

// in memory hint store for tests and single process clusters
type MemStore struct {
	data map[node.NodeId]map[string]*storage.Value
	lock sync.Mutex
}

var _ Store = &MemStore{}

func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[node.NodeId]map[string]*storage.Value),
	}
}

func (s *MemStore) Start() error { return nil }
func (s *MemStore) Stop() error  { return nil }

func (s *MemStore) Put(target node.NodeId, key string, val *storage.Value) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	byKey, exists := s.data[target]
	if !exists {
		byKey = make(map[string]*storage.Value)
		s.data[target] = byKey
	}
	if existing := byKey[key]; existing != nil && !val.Supersedes(existing) {
		return nil
	}
	byKey[key] = val
	return nil
}

func (s *MemStore) List(target node.NodeId) ([]Hint, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	hints := make([]Hint, 0, len(s.data[target]))
	for key, val := range s.data[target] {
		hints = append(hints, Hint{Target: target, Key: key, Value: val})
	}
	sortHints(hints)
	return hints, nil
}

func (s *MemStore) Remove(target node.NodeId, key string, val *storage.Value) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	byKey := s.data[target]
	if byKey == nil {
		return nil
	}
	if existing := byKey[key]; existing != nil && existing.Supersedes(val) {
		// a newer hint arrived while this one was replaying
		return nil
	}
	delete(byKey, key)
	if len(byKey) == 0 {
		delete(s.data, target)
	}
	return nil
}

func (s *MemStore) Targets() ([]node.NodeId, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	targets := make([]node.NodeId, 0, len(s.data))
	for target := range s.data {
		targets = append(targets, target)
	}
	return targets, nil
}

// durable hint store backed by pebble. Keys are laid out as
// h/<target>/<key>, values are the encoded storage value
type PebbleStore struct {
	dir string
	db  *pebble.DB
}

var _ Store = &PebbleStore{}

func NewPebbleStore(dir string) *PebbleStore {
	return &PebbleStore{dir: dir}
}

func (s *PebbleStore) Start() error {
	db, err := pebble.Open(s.dir, &pebble.Options{})
	if err != nil {
		return errors.Wrapf(err, "opening hint db at %v", s.dir)
	}
	s.db = db
	return nil
}

func (s *PebbleStore) Stop() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func hintKey(target node.NodeId, key string) []byte {
	return []byte("h/" + string(target) + "/" + key)
}

func hintPrefix(target node.NodeId) ([]byte, []byte) {
	lower := []byte("h/" + string(target) + "/")
	upper := []byte("h/" + string(target) + "0") // '0' sorts directly after '/'
	return lower, upper
}

func (s *PebbleStore) get(target node.NodeId, key string) (*storage.Value, error) {
	b, closer, err := s.db.Get(hintKey(target, key))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading hint")
	}
	defer closer.Close()
	return storage.DecodeValue(b)
}

func (s *PebbleStore) Put(target node.NodeId, key string, val *storage.Value) error {
	existing, err := s.get(target, key)
	if err != nil {
		return err
	}
	if existing != nil && !val.Supersedes(existing) {
		return nil
	}
	b, err := storage.EncodeValue(val)
	if err != nil {
		return errors.Wrap(err, "encoding hint")
	}
	return errors.Wrap(s.db.Set(hintKey(target, key), b, pebble.Sync), "writing hint")
}

func (s *PebbleStore) List(target node.NodeId) ([]Hint, error) {
	lower, upper := hintPrefix(target)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, errors.Wrap(err, "opening hint iterator")
	}
	defer iter.Close()

	hints := make([]Hint, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		val, err := storage.DecodeValue(iter.Value())
		if err != nil {
			return nil, errors.Wrap(err, "decoding hint")
		}
		hints = append(hints, Hint{
			Target: target,
			Key:    string(iter.Key()[len(lower):]),
			Value:  val,
		})
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating hints")
	}
	sortHints(hints)
	return hints, nil
}

func (s *PebbleStore) Remove(target node.NodeId, key string, val *storage.Value) error {
	existing, err := s.get(target, key)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if existing.Supersedes(val) {
		// a newer hint arrived while this one was replaying
		return nil
	}
	return errors.Wrap(s.db.Delete(hintKey(target, key), pebble.Sync), "removing hint")
}

func (s *PebbleStore) Targets() ([]node.NodeId, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "opening hint iterator")
	}
	defer iter.Close()

	targets := make([]node.NodeId, 0)
	seen := make(map[node.NodeId]bool)
	for iter.First(); iter.Valid(); iter.Next() {
		k := string(iter.Key())
		// h/<target>/<key>
		if len(k) < 2 {
			continue
		}
		end := 2
		for end < len(k) && k[end] != '/' {
			end++
		}
		target := node.NodeId(k[2:end])
		if !seen[target] {
			seen[target] = true
			targets = append(targets, target)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating hints")
	}
	return targets, nil
}
