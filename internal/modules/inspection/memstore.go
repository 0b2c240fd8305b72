// README: In-process condition report store for single-node deployments and
// tests.
package inspection

import (
	"context"
	"sync"
)

type MemStore struct {
	mu      sync.Mutex
	reports map[string]*Report // reservationID+phase+role
}

func NewMemStore() *MemStore {
	return &MemStore{reports: map[string]*Report{}}
}

func reportKey(reservationID string, phase Phase, role string) string {
	return reservationID + "\x00" + string(phase) + "\x00" + role
}

func (s *MemStore) Insert(ctx context.Context, r *Report) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reportKey(r.ReservationID, r.Phase, r.Role)
	if _, ok := s.reports[k]; ok {
		return false, nil
	}
	cp := *r
	s.reports[k] = &cp
	return true, nil
}

func (s *MemStore) ListPhase(ctx context.Context, reservationID string, phase Phase) ([]*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Report
	for _, r := range s.reports {
		if r.ReservationID == reservationID && r.Phase == phase {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}
