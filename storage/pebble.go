package storage

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// durable engine backed by pebble. The LSM mechanics belong to
// pebble, this adapter only maps the narrow engine contract onto it
type PebbleEngine struct {
	dir string
	db  *pebble.DB
}

var _ Engine = &PebbleEngine{}

func NewPebbleEngine(dir string) *PebbleEngine {
	return &PebbleEngine{dir: dir}
}

func (s *PebbleEngine) Start() error {
	db, err := pebble.Open(s.dir, &pebble.Options{})
	if err != nil {
		return errors.Wrapf(err, "opening pebble db at %v", s.dir)
	}
	s.db = db
	return nil
}

func (s *PebbleEngine) Stop() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *PebbleEngine) Get(key string) (*Value, error) {
	b, closer, err := s.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading key %v", key)
	}
	defer closer.Close()

	val, err := DecodeValue(b)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding value for key %v", key)
	}
	return val, nil
}

func (s *PebbleEngine) Put(key string, val *Value) error {
	b, err := EncodeValue(val)
	if err != nil {
		return errors.Wrapf(err, "encoding value for key %v", key)
	}
	if err := s.db.Set([]byte(key), b, pebble.Sync); err != nil {
		return errors.Wrapf(err, "writing key %v", key)
	}
	return nil
}

func (s *PebbleEngine) Keys() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "opening iterator")
	}
	defer iter.Close()

	keys := make([]string, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		// iterator keys are only valid until the next
		// positioning call
		k := make([]byte, len(iter.Key()))
		copy(k, iter.Key())
		keys = append(keys, string(k))
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating keys")
	}
	return keys, nil
}
