package state

import "sync"

// MemStore is the in-memory Store used by tests.
type MemStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, bool) {
	s.mu.Lock()
	v, ok := s.m[key]
	s.mu.Unlock()

	return v, ok && v != ""
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Delete(keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.m, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	s.m = make(map[string]string)
	s.mu.Unlock()
	return nil
}
