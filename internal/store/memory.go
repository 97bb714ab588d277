package store

import (
	"context"
	"sync"
)

// MemoryStore keeps collections in a mutex-guarded map. Used in tests and
// for throwaway deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, collection string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, collection string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(doc))
	copy(stored, doc)
	s.docs[collection] = stored
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.docs[collection])
	if err != nil {
		return err
	}
	stored := make([]byte, len(next))
	copy(stored, next)
	s.docs[collection] = stored
	return nil
}

func (s *MemoryStore) Close() error { return nil }
