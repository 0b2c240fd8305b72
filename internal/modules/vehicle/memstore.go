// README: In-process vehicle store for single-node deployments and tests.
package vehicle

import (
	"context"
	"sync"
)

type MemStore struct {
	mu       sync.Mutex
	vehicles map[string]*Vehicle
}

func NewMemStore() *MemStore {
	return &MemStore{vehicles: map[string]*Vehicle{}}
}

func (s *MemStore) Put(v *Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.vehicles[v.ID] = &cp
}

func (s *MemStore) Get(ctx context.Context, id string) (*Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}
