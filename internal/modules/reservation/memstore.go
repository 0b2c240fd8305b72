// README: In-process reservation store for single-node deployments and
// tests. The mutex stands in for the row lock the SQL store gets for free.
package reservation

import (
	"context"
	"sync"
	"time"
)

type MemStore struct {
	mu           sync.Mutex
	reservations map[string]*Reservation
}

func NewMemStore() *MemStore {
	return &MemStore{reservations: map[string]*Reservation{}}
}

func (s *MemStore) Create(ctx context.Context, r *Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reservations[r.ID] = &cp
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, id)
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemStore) UpdateStatus(ctx context.Context, id string, from, to Status, version int, patch Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status != from || r.Version != version {
		return false, nil
	}
	r.Status = to
	r.Version++
	r.UpdatedAt = time.Now().UTC()
	applyPatch(r, patch)
	return true, nil
}

func (s *MemStore) ApplyPatch(ctx context.Context, id string, version int, patch Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Version != version {
		return false, nil
	}
	r.Version++
	r.UpdatedAt = time.Now().UTC()
	applyPatch(r, patch)
	return true, nil
}

func applyPatch(r *Reservation, patch Patch) {
	if patch.PaymentStatus != nil {
		r.PaymentStatus = *patch.PaymentStatus
	}
	if patch.DepositStatus != nil {
		r.DepositStatus = *patch.DepositStatus
	}
	if patch.DepositHoldRef != nil {
		v := *patch.DepositHoldRef
		r.DepositHoldRef = &v
	}
	if patch.DepositRetained != nil {
		v := *patch.DepositRetained
		r.DepositRetained = &v
	}
	if patch.AcceptedAt != nil {
		v := *patch.AcceptedAt
		r.AcceptedAt = &v
	}
	if patch.CancelledBy != nil {
		v := *patch.CancelledBy
		r.CancelledBy = &v
	}
	if patch.RefundPercent != nil {
		v := *patch.RefundPercent
		r.RefundPercent = &v
	}
	if patch.RefundAmount != nil {
		v := *patch.RefundAmount
		r.RefundAmount = &v
	}
	if patch.PenaltyAmount != nil {
		v := *patch.PenaltyAmount
		r.PenaltyAmount = &v
	}
	if patch.CancellationReason != nil {
		v := *patch.CancellationReason
		r.CancellationReason = &v
	}
}

func (s *MemStore) HasActiveForRenterVehicle(ctx context.Context, renterID, vehicleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.RenterUserID == renterID && r.VehicleID == vehicleID && !r.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) RecentlyTerminated(ctx context.Context, renterID, vehicleID string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.RenterUserID == renterID && r.VehicleID == vehicleID &&
			(r.Status == StatusRejected || r.Status == StatusCancelled) &&
			r.UpdatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) ListAcceptedUnpaidBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Reservation
	for _, r := range s.reservations {
		if r.Status == StatusAcceptedPendingPayment && r.AcceptedAt != nil && r.AcceptedAt.Before(cutoff) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemStore) ListInProgressEndedBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Reservation
	for _, r := range s.reservations {
		if r.Status == StatusInProgress && !r.EndDate.After(cutoff) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}
