// README: Condition report quorum gate. Each phase completes only when both
// parties have independently submitted, and the phase effect fires once.
package inspection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"roam/internal/modules/reservation"
	"roam/internal/modules/timeline"
)

type Store interface {
	// Insert is a no-op returning false when a report already exists for
	// (reservation, phase, role).
	Insert(ctx context.Context, r *Report) (bool, error)
	ListPhase(ctx context.Context, reservationID string, phase Phase) ([]*Report, error)
}

// Reservations is the slice of the reservation service the gate needs.
type Reservations interface {
	Get(ctx context.Context, id string) (*reservation.Reservation, error)
	CompleteCheckin(ctx context.Context, id string) (*reservation.Reservation, error)
	CompleteCheckout(ctx context.Context, id string) (*reservation.Reservation, error)
}

type Service struct {
	store        Store
	reservations Reservations
	timeline     *timeline.Service
}

func NewService(store Store, reservations Reservations, tl *timeline.Service) *Service {
	return &Service{store: store, reservations: reservations, timeline: tl}
}

type SubmitCommand struct {
	ReservationID string
	ActorUserID   string
	Phase         Phase
	// RequiredPhotos must populate every named slot.
	RequiredPhotos map[string]string
	DetailPhotos   []DetailPhoto
	Video360Ref    string
}

func expectedStatus(phase Phase) (reservation.Status, bool) {
	switch phase {
	case PhaseCheckin:
		return reservation.StatusPickupPending, true
	case PhaseCheckout:
		return reservation.StatusDropoffPending, true
	}
	return "", false
}

// Submit records the caller's report. The submitter's role comes from the
// reservation row, never from the request. When the second role's report
// lands, the phase effect fires: checkin moves the rental to in_progress
// and places the deposit hold; checkout completes it and releases the hold.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*Report, error) {
	expected, ok := expectedStatus(cmd.Phase)
	if !ok {
		return nil, ErrInvalidStatus
	}
	r, err := s.reservations.Get(ctx, cmd.ReservationID)
	if err != nil {
		return nil, err
	}
	role, err := reservation.RoleOf(r, cmd.ActorUserID)
	if err != nil {
		return nil, err
	}
	if r.Status != expected {
		return nil, ErrInvalidStatus
	}
	for _, slot := range RequiredSlots {
		if cmd.RequiredPhotos[slot] == "" {
			return nil, ErrMissingRequiredPhotos
		}
	}
	if len(cmd.DetailPhotos) > MaxDetailPhotos {
		return nil, ErrTooManyDetailPhotos
	}

	report := &Report{
		ID:                uuid.NewString(),
		ReservationID:     cmd.ReservationID,
		Phase:             cmd.Phase,
		Role:              string(role),
		RequiredPhotos:    cmd.RequiredPhotos,
		DetailPhotos:      cmd.DetailPhotos,
		SubmittedByUserID: cmd.ActorUserID,
		CompletedAt:       time.Now().UTC(),
	}
	if cmd.Video360Ref != "" {
		report.Video360Ref = &cmd.Video360Ref
	}
	created, err := s.store.Insert(ctx, report)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadySubmitted
	}

	if _, _, err := s.timeline.Emit(ctx, timeline.EmitCommand{
		ReservationID:  cmd.ReservationID,
		Type:           timeline.EventReportSubmitted,
		ActorUserID:    cmd.ActorUserID,
		IdempotencyKey: cmd.ReservationID + ":report:" + string(cmd.Phase) + ":" + string(role),
		Payload:        map[string]any{"phase": string(cmd.Phase), "role": string(role)},
		Status:         string(r.Status),
	}); err != nil {
		return nil, err
	}

	if err := s.fireIfQuorum(ctx, cmd.ReservationID, cmd.Phase, expected); err != nil {
		return nil, err
	}
	return report, nil
}

// fireIfQuorum re-reads both role reports and, when both exist, re-fetches
// the reservation to confirm it is still in the pre-transition status before
// firing. Two racing "last submitters" both reach here; the orchestrator's
// compare-and-set lets only one of them perform the transition.
func (s *Service) fireIfQuorum(ctx context.Context, reservationID string, phase Phase, expected reservation.Status) error {
	reports, err := s.store.ListPhase(ctx, reservationID, phase)
	if err != nil {
		return err
	}
	roles := map[string]bool{}
	for _, rep := range reports {
		roles[rep.Role] = true
	}
	if !roles[string(reservation.RoleOwner)] || !roles[string(reservation.RoleRenter)] {
		return nil
	}

	r, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return err
	}
	if r.Status != expected {
		// Someone else already fired the phase, or the reservation moved
		// on (for example a cancellation racing the final submission).
		return nil
	}
	switch phase {
	case PhaseCheckin:
		_, err = s.reservations.CompleteCheckin(ctx, reservationID)
	case PhaseCheckout:
		_, err = s.reservations.CompleteCheckout(ctx, reservationID)
	}
	if err == reservation.ErrConflict || err == reservation.ErrInvalidTransition {
		// Lost the race to the other submitter; the effect already fired.
		return nil
	}
	return err
}

// HasReport reports whether any report exists for the phase; the dispute
// workflow requires a checkout report before opening.
func (s *Service) HasReport(ctx context.Context, reservationID string, phase Phase) (bool, error) {
	reports, err := s.store.ListPhase(ctx, reservationID, phase)
	if err != nil {
		return false, err
	}
	return len(reports) > 0, nil
}

// ListPhase returns the submitted reports for a phase.
func (s *Service) ListPhase(ctx context.Context, reservationID string, phase Phase) ([]*Report, error) {
	return s.store.ListPhase(ctx, reservationID, phase)
}
