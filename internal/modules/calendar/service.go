// README: Date-lock manager; a range is fully claimed or not at all.
package calendar

import (
	"context"
	"time"
)

// Store mutates a vehicle's bucket. Claim must check and write atomically
// against the single bucket record so concurrent callers serialize on it.
type Store interface {
	Claim(ctx context.Context, vehicleID, reservationID string, days []string) (bool, error)
	Free(ctx context.Context, vehicleID, reservationID string, days []string) error
	Booked(ctx context.Context, vehicleID string) (map[string]string, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Acquire claims every day in [start, endExclusive) for the reservation.
// If any day is already owned by a different reservation nothing is
// mutated and ErrVehicleUnavailable is returned. Re-acquiring days this
// reservation already owns is a no-op success.
func (s *Service) Acquire(ctx context.Context, vehicleID, reservationID string, start, endExclusive time.Time) error {
	days := DaysBetween(start, endExclusive)
	if len(days) == 0 {
		return ErrBadRange
	}
	ok, err := s.store.Claim(ctx, vehicleID, reservationID, days)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVehicleUnavailable
	}
	return nil
}

// Release removes only the days this reservation owns; releasing days it
// does not own is a no-op.
func (s *Service) Release(ctx context.Context, vehicleID, reservationID string, start, endExclusive time.Time) error {
	days := DaysBetween(start, endExclusive)
	if len(days) == 0 {
		return nil
	}
	return s.store.Free(ctx, vehicleID, reservationID, days)
}

// Booked returns the vehicle's claimed days, keyed by ISO day.
func (s *Service) Booked(ctx context.Context, vehicleID string) (map[string]string, error) {
	return s.store.Booked(ctx, vehicleID)
}
