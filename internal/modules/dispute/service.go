// README: Dispute workflow. Opening a dispute flips the reservation to
// disputed; resolving it hands the retained amount decision to the deposit
// ledger through the reservation service.
package dispute

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"roam/internal/modules/inspection"
	"roam/internal/modules/reservation"
	"roam/internal/modules/timeline"
)

type Store interface {
	// Insert persists the dispute. Returns false when the reservation
	// already has an open dispute.
	Insert(ctx context.Context, d *Dispute) (bool, error)
	Get(ctx context.Context, id string) (*Dispute, error)
	// MarkResolved flips open to resolved. Returns false when the dispute
	// was not open anymore.
	MarkResolved(ctx context.Context, id string, resolution Resolution, retained int64, note string, at time.Time) (bool, error)
	ListByReservation(ctx context.Context, reservationID string) ([]*Dispute, error)
}

// Reservations is the slice of the reservation service the workflow needs.
type Reservations interface {
	Get(ctx context.Context, id string) (*reservation.Reservation, error)
	MarkDisputed(ctx context.Context, id, actorID, disputeID string) (*reservation.Reservation, error)
	ResolveDisputed(ctx context.Context, id string, outcome reservation.ResolveOutcome) (*reservation.Reservation, error)
}

type Inspections interface {
	HasReport(ctx context.Context, reservationID string, phase inspection.Phase) (bool, error)
}

type Events interface {
	LatestEventByType(ctx context.Context, reservationID, eventType string) (*timeline.Event, error)
}

type Service struct {
	store        Store
	reservations Reservations
	inspections  Inspections
	events       Events
	adminUserID  string
	window       time.Duration
	log          *logrus.Logger
	now          func() time.Time
}

func NewService(store Store, reservations Reservations, inspections Inspections, events Events, adminUserID string, window time.Duration, log *logrus.Logger) *Service {
	if window <= 0 {
		window = WindowAfterCheckout
	}
	return &Service{
		store:        store,
		reservations: reservations,
		inspections:  inspections,
		events:       events,
		adminUserID:  adminUserID,
		window:       window,
		log:          log,
		now:          time.Now,
	}
}

type OpenCommand struct {
	ReservationID string
	ActorUserID   string
	Reason        string
	Description   string
	PhotoRefs     []string
}

// Open files a dispute on a rental that reached dropoff. Completed rentals
// stay contestable for a fixed window after checkout.
func (s *Service) Open(ctx context.Context, cmd OpenCommand) (*Dispute, error) {
	if len(strings.TrimSpace(cmd.Description)) < MinDescriptionLen {
		return nil, ErrDescriptionTooShort
	}
	r, err := s.reservations.Get(ctx, cmd.ReservationID)
	if err != nil {
		return nil, err
	}
	role, err := reservation.RoleOf(r, cmd.ActorUserID)
	if err != nil {
		return nil, ErrForbidden
	}
	if r.Status != reservation.StatusDropoffPending && r.Status != reservation.StatusCompleted {
		return nil, ErrInvalidStatus
	}
	hasReport, err := s.inspections.HasReport(ctx, r.ID, inspection.PhaseCheckout)
	if err != nil {
		return nil, err
	}
	if !hasReport {
		return nil, ErrNoCheckoutReport
	}
	if r.Status == reservation.StatusCompleted {
		checkoutAt := r.UpdatedAt
		ev, err := s.events.LatestEventByType(ctx, r.ID, timeline.EventCheckoutCompleted)
		switch {
		case err == nil:
			checkoutAt = ev.CreatedAt
		case !errors.Is(err, timeline.ErrNotFound):
			return nil, err
		}
		if s.now().After(checkoutAt.Add(s.window)) {
			return nil, ErrWindowExpired
		}
	}

	d := &Dispute{
		ID:             uuid.NewString(),
		ReservationID:  r.ID,
		VehicleID:      r.VehicleID,
		OpenedByUserID: cmd.ActorUserID,
		OpenedByRole:   string(role),
		Reason:         cmd.Reason,
		Description:    cmd.Description,
		PhotoRefs:      cmd.PhotoRefs,
		Status:         StatusOpen,
		CreatedAt:      s.now().UTC(),
	}
	created, err := s.store.Insert(ctx, d)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyOpen
	}

	if _, err := s.reservations.MarkDisputed(ctx, r.ID, cmd.ActorUserID, d.ID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"dispute_id":     d.ID,
			"reservation_id": r.ID,
		}).Error("mark disputed failed after dispute insert")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"dispute_id":     d.ID,
		"reservation_id": r.ID,
		"opened_by":      cmd.ActorUserID,
	}).Info("dispute opened")
	return d, nil
}

type ResolveCommand struct {
	DisputeID    string
	AdminUserID  string
	Resolution   Resolution
	RetainAmount int64
	AdminNote    string
}

// Resolve records the admin verdict exactly once and settles the deposit.
func (s *Service) Resolve(ctx context.Context, cmd ResolveCommand) (*Dispute, error) {
	if cmd.AdminUserID != s.adminUserID {
		return nil, ErrForbidden
	}
	d, err := s.store.Get(ctx, cmd.DisputeID)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusOpen {
		return nil, ErrAlreadyResolved
	}
	r, err := s.reservations.Get(ctx, d.ReservationID)
	if err != nil {
		return nil, err
	}

	var retain int64
	switch cmd.Resolution {
	case ResolutionNoPenalty:
		retain = 0
	case ResolutionFull:
		retain = r.DepositAmount
	case ResolutionPartial:
		if cmd.RetainAmount <= 0 || cmd.RetainAmount > r.DepositAmount {
			return nil, ErrBadRequest
		}
		retain = cmd.RetainAmount
	default:
		return nil, ErrBadRequest
	}

	resolvedAt := s.now().UTC()
	ok, err := s.store.MarkResolved(ctx, d.ID, cmd.Resolution, retain, cmd.AdminNote, resolvedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyResolved
	}

	if _, err := s.reservations.ResolveDisputed(ctx, d.ReservationID, reservation.ResolveOutcome{
		DisputeID:    d.ID,
		RetainAmount: retain,
		AdminUserID:  cmd.AdminUserID,
	}); err != nil {
		return nil, err
	}

	d.Status = StatusResolved
	d.Resolution = &cmd.Resolution
	d.RetainedAmount = &retain
	if cmd.AdminNote != "" {
		d.AdminNote = &cmd.AdminNote
	}
	d.ResolvedAt = &resolvedAt
	s.log.WithFields(logrus.Fields{
		"dispute_id": d.ID,
		"resolution": cmd.Resolution,
		"retained":   retain,
	}).Info("dispute resolved")
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Dispute, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByReservation(ctx context.Context, reservationID string) ([]*Dispute, error) {
	return s.store.ListByReservation(ctx, reservationID)
}
