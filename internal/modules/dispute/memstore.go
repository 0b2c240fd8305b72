// README: In-memory dispute store for single-node deployments and tests.
package dispute

import (
	"context"
	"sync"
	"time"
)

type MemStore struct {
	mu       sync.Mutex
	disputes map[string]*Dispute
}

func NewMemStore() *MemStore {
	return &MemStore{disputes: make(map[string]*Dispute)}
}

func (s *MemStore) Insert(ctx context.Context, d *Dispute) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.disputes {
		if existing.ReservationID == d.ReservationID && existing.Status == StatusOpen {
			return false, nil
		}
	}
	cp := *d
	s.disputes[d.ID] = &cp
	return true, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.disputes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemStore) MarkResolved(ctx context.Context, id string, resolution Resolution, retained int64, note string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.disputes[id]
	if !ok || d.Status != StatusOpen {
		return false, nil
	}
	d.Status = StatusResolved
	d.Resolution = &resolution
	d.RetainedAmount = &retained
	if note != "" {
		d.AdminNote = &note
	}
	d.ResolvedAt = &at
	return true, nil
}

func (s *MemStore) ListByReservation(ctx context.Context, reservationID string) ([]*Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Dispute
	for _, d := range s.disputes {
		if d.ReservationID == reservationID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}
