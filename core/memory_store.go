package core

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Entry),
	}
}

func (s *MemoryStore) Load(_ context.Context, clientID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[clientID]
	return e, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, clientID string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[clientID] = e
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
