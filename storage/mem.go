package storage

import (
	"sync"
)

// in memory engine used by tests and single process clusters
type MemEngine struct {
	data map[string]*Value
	lock sync.RWMutex
}

var _ Engine = &MemEngine{}

func NewMemEngine() *MemEngine {
	return &MemEngine{
		data: make(map[string]*Value),
	}
}

func (s *MemEngine) Start() error {
	return nil
}

func (s *MemEngine) Stop() error {
	return nil
}

func (s *MemEngine) Get(key string) (*Value, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.data[key], nil
}

func (s *MemEngine) Put(key string, val *Value) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.data[key] = val
	return nil
}

func (s *MemEngine) Keys() ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}
