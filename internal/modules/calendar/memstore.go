// README: In-process calendar store for single-node deployments and tests.
package calendar

import (
	"context"
	"sync"
)

type MemStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{buckets: map[string]map[string]string{}}
}

func (s *MemStore) Claim(ctx context.Context, vehicleID, reservationID string, days []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.buckets[vehicleID]
	if !ok {
		bucket = map[string]string{}
		s.buckets[vehicleID] = bucket
	}
	for _, d := range days {
		if owner, claimed := bucket[d]; claimed && owner != reservationID {
			return false, nil
		}
	}
	for _, d := range days {
		bucket[d] = reservationID
	}
	return true, nil
}

func (s *MemStore) Free(ctx context.Context, vehicleID, reservationID string, days []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.buckets[vehicleID]
	if !ok {
		return nil
	}
	for _, d := range days {
		if bucket[d] == reservationID {
			delete(bucket, d)
		}
	}
	return nil
}

func (s *MemStore) Booked(ctx context.Context, vehicleID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for d, owner := range s.buckets[vehicleID] {
		out[d] = owner
	}
	return out, nil
}
