// README: Periodic sweeps: unpaid-after-acceptance auto-cancel and
// end-of-rental auto-advance.
package reservation

import (
	"context"
	"time"
)

// RunSweeper drives both sweeps on a ticker until the context ends.
func (s *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			if err := s.SweepPaymentTimeouts(ctx, now); err != nil && s.log != nil {
				s.log.WithError(err).Error("payment timeout sweep failed")
			}
			if err := s.SweepEndedRentals(ctx, now); err != nil && s.log != nil {
				s.log.WithError(err).Error("ended rental sweep failed")
			}
		}
	}
}

// SweepPaymentTimeouts cancels reservations stuck in
// accepted_pending_payment past the payment window. Cancel releases the
// vehicle days in the same logical step, so the days become bookable again.
func (s *Service) SweepPaymentTimeouts(ctx context.Context, now time.Time) error {
	stale, err := s.store.ListAcceptedUnpaidBefore(ctx, now.Add(-s.cfg.PaymentTimeout))
	if err != nil {
		return err
	}
	for _, r := range stale {
		if _, err := s.Cancel(ctx, CancelCommand{
			ReservationID: r.ID,
			ActorUserID:   ActorSystem,
			Reason:        "payment_timeout",
		}); err != nil && err != ErrInvalidTransition && err != ErrConflict {
			return err
		}
	}
	return nil
}

// SweepEndedRentals advances in_progress rentals whose end date has passed.
func (s *Service) SweepEndedRentals(ctx context.Context, now time.Time) error {
	ended, err := s.store.ListInProgressEndedBefore(ctx, now)
	if err != nil {
		return err
	}
	for _, r := range ended {
		if _, err := s.AdvanceToDropoff(ctx, r.ID); err != nil && err != ErrInvalidTransition && err != ErrConflict {
			return err
		}
	}
	return nil
}
