// README: Reservation service: the transition orchestrator plus every
// lifecycle operation. All status changes in the system funnel through
// transition().
package reservation

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"roam/internal/modules/calendar"
	"roam/internal/modules/deposit"
	"roam/internal/modules/refund"
	"roam/internal/modules/timeline"
	"roam/internal/modules/vehicle"
	"roam/internal/notify"
)

var (
	ErrNotFound              = errors.New("reservation not found")
	ErrBadRequest            = errors.New("bad request")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidTransition     = errors.New("invalid state transition")
	ErrConflict              = errors.New("reservation state conflict")
	ErrVehicleUnavailable    = calendar.ErrVehicleUnavailable
	ErrAlreadyRequested      = errors.New("reservation already requested")
	ErrCooldownActive        = errors.New("request cooldown active")
	ErrKycRequired           = errors.New("identity verification required")
	ErrOwnerBlockedDates     = errors.New("owner has blocked those dates")
	ErrPaymentNotInitialized = errors.New("payment not initialized")
	ErrPaymentNotCompleted   = errors.New("payment not completed")
)

type Store interface {
	Create(ctx context.Context, r *Reservation) error
	// Delete exists solely for the compensating delete when the date lock
	// cannot be acquired after insert.
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Reservation, error)
	// UpdateStatus performs the compare-and-set transition; false means the
	// guard (status+version) no longer matched.
	UpdateStatus(ctx context.Context, id string, from, to Status, version int, patch Patch) (bool, error)
	// ApplyPatch bumps the version and applies fields without a status change.
	ApplyPatch(ctx context.Context, id string, version int, patch Patch) (bool, error)
	HasActiveForRenterVehicle(ctx context.Context, renterID, vehicleID string) (bool, error)
	RecentlyTerminated(ctx context.Context, renterID, vehicleID string, since time.Time) (bool, error)
	ListAcceptedUnpaidBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error)
	ListInProgressEndedBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error)
}

type Config struct {
	CommissionPercent float64
	Cooldown          time.Duration
	PaymentTimeout    time.Duration
	SweepTick         time.Duration
}

type Service struct {
	store    Store
	vehicles vehicle.Store
	locks    *calendar.Service
	timeline *timeline.Service
	ledger   *deposit.Ledger
	sink     notify.Sink
	log      *logrus.Logger
	cfg      Config
}

func NewService(store Store, vehicles vehicle.Store, locks *calendar.Service, tl *timeline.Service, ledger *deposit.Ledger, sink notify.Sink, log *logrus.Logger, cfg Config) *Service {
	if cfg.CommissionPercent <= 0 {
		cfg.CommissionPercent = 0.15
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Minute
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 30 * time.Minute
	}
	if cfg.SweepTick <= 0 {
		cfg.SweepTick = time.Minute
	}
	return &Service{store: store, vehicles: vehicles, locks: locks, timeline: tl, ledger: ledger, sink: sink, log: log, cfg: cfg}
}

func (s *Service) Get(ctx context.Context, id string) (*Reservation, error) {
	return s.store.Get(ctx, id)
}

// transition is the sole authorized status mutator. It short-circuits when
// the reservation is already in the desired state with the patch applied,
// validates the edge, compare-and-sets the row, and emits the domain event.
// performed reports whether this call did the write; a raced-out caller
// whose target was reached anyway gets performed=false and a nil error.
func (s *Service) transition(ctx context.Context, r *Reservation, to Status, patch Patch, eventType, eventKey, actorID string, payload map[string]any) (fresh *Reservation, performed bool, err error) {
	if r.Status == to && patch.AppliedTo(r) {
		return r, false, nil
	}
	if !CanTransition(r.Status, to) {
		return nil, false, ErrInvalidTransition
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, to, r.Version, patch)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		latest, err := s.store.Get(ctx, r.ID)
		if err != nil {
			return nil, false, err
		}
		if latest.Status == to {
			// A concurrent caller got there first with its own patch;
			// nothing left to do here.
			return latest, false, nil
		}
		return nil, false, ErrConflict
	}
	latest, err := s.store.Get(ctx, r.ID)
	if err != nil {
		return nil, false, err
	}
	if eventType != "" {
		if _, _, err := s.timeline.Emit(ctx, timeline.EmitCommand{
			ReservationID:  r.ID,
			Type:           eventType,
			ActorUserID:    actorID,
			IdempotencyKey: eventKey,
			Payload:        payload,
			Status:         string(to),
		}); err != nil {
			return nil, false, err
		}
	}
	return latest, true, nil
}

func (s *Service) notify(ctx context.Context, userID, template string, data map[string]any) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Notify(ctx, userID, template, data); err != nil && s.log != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "template": template}).
			Warn("notification delivery failed")
	}
}

type RequestCommand struct {
	VehicleID    string
	RenterUserID string
	// RenterVerified comes from the identity boundary; unverified renters
	// cannot book.
	RenterVerified bool
	StartDate      time.Time
	EndDate        time.Time
}

// Request creates the reservation and claims the vehicle's days. The row is
// inserted before the lock is confirmed, so a failed acquire compensates
// with a delete; an unlocked "requested" row must never survive.
func (s *Service) Request(ctx context.Context, cmd RequestCommand) (*Reservation, error) {
	if cmd.VehicleID == "" || cmd.RenterUserID == "" {
		return nil, ErrBadRequest
	}
	if !cmd.RenterVerified {
		return nil, ErrKycRequired
	}
	days := calendar.DaysBetween(cmd.StartDate, cmd.EndDate)
	if len(days) == 0 {
		return nil, ErrBadRequest
	}

	v, err := s.vehicles.Get(ctx, cmd.VehicleID)
	if err != nil {
		return nil, err
	}
	if v.OwnerUserID == cmd.RenterUserID {
		return nil, ErrForbidden
	}
	for _, d := range days {
		if v.IsBlocked(d) {
			return nil, ErrOwnerBlockedDates
		}
	}

	active, err := s.store.HasActiveForRenterVehicle(ctx, cmd.RenterUserID, cmd.VehicleID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrAlreadyRequested
	}
	recent, err := s.store.RecentlyTerminated(ctx, cmd.RenterUserID, cmd.VehicleID, time.Now().Add(-s.cfg.Cooldown))
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, ErrCooldownActive
	}

	total := int64(len(days)) * v.DailyRate
	commission := int64(math.Round(float64(total) * s.cfg.CommissionPercent))
	now := time.Now().UTC()
	r := &Reservation{
		ID:               uuid.NewString(),
		VehicleID:        cmd.VehicleID,
		RenterUserID:     cmd.RenterUserID,
		OwnerUserID:      v.OwnerUserID,
		Status:           StatusRequested,
		StartDate:        cmd.StartDate.UTC(),
		EndDate:          cmd.EndDate.UTC(),
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          0,
		TotalAmount:      total,
		CommissionAmount: commission,
		OwnerPayout:      total - commission,
		DepositAmount:    v.DepositAmount,
		Currency:         v.Currency,
		PaymentStatus:    PaymentPending,
		DepositStatus:    deposit.StateNone,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	if err := s.locks.Acquire(ctx, r.VehicleID, r.ID, r.StartDate, r.EndDate); err != nil {
		// Compensating delete: the row went in before the lock.
		if delErr := s.store.Delete(ctx, r.ID); delErr != nil && s.log != nil {
			s.log.WithError(delErr).WithField("reservation_id", r.ID).
				Error("compensating delete failed")
		}
		return nil, err
	}

	if _, _, err := s.timeline.Emit(ctx, timeline.EmitCommand{
		ReservationID: r.ID,
		Type:          timeline.EventReservationCreated,
		ActorUserID:   r.RenterUserID,
		Payload:       map[string]any{"vehicle_id": r.VehicleID, "total_amount": r.TotalAmount},
		Status:        string(r.Status),
	}); err != nil {
		return nil, err
	}
	s.notify(ctx, r.OwnerUserID, notify.TemplateReservationRequested, map[string]any{"reservation_id": r.ID})
	return r, nil
}

// Accept moves a request to accepted_pending_payment and initializes the
// payment; owner only.
func (s *Service) Accept(ctx context.Context, id, actorID string) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := RoleOf(r, actorID)
	if err != nil {
		return nil, err
	}
	if role != RoleOwner {
		return nil, ErrForbidden
	}
	now := time.Now().UTC()
	ps := PaymentInitialized
	latest, performed, err := s.transition(ctx, r, StatusAcceptedPendingPayment,
		Patch{PaymentStatus: &ps, AcceptedAt: &now},
		timeline.EventReservationAccepted, "", actorID, nil)
	if err != nil {
		return nil, err
	}
	if performed {
		if _, _, err := s.timeline.Emit(ctx, timeline.EmitCommand{
			ReservationID: r.ID,
			Type:          timeline.EventPaymentInitialized,
			ActorUserID:   ActorSystem,
			Payload:       map[string]any{"amount": r.TotalAmount, "currency": r.Currency},
			Status:        string(StatusAcceptedPendingPayment),
		}); err != nil {
			return nil, err
		}
		s.notify(ctx, r.RenterUserID, notify.TemplateReservationAccepted, map[string]any{"reservation_id": r.ID})
	}
	return latest, nil
}

// Reject declines a request and frees the vehicle days; owner only.
func (s *Service) Reject(ctx context.Context, id, actorID string) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := RoleOf(r, actorID)
	if err != nil {
		return nil, err
	}
	if role != RoleOwner {
		return nil, ErrForbidden
	}
	latest, performed, err := s.transition(ctx, r, StatusRejected, Patch{},
		timeline.EventReservationRejected, "", actorID, nil)
	if err != nil {
		return nil, err
	}
	if performed {
		if err := s.locks.Release(ctx, r.VehicleID, r.ID, r.StartDate, r.EndDate); err != nil {
			return nil, err
		}
		s.notify(ctx, r.RenterUserID, notify.TemplateReservationRejected, map[string]any{"reservation_id": r.ID})
	}
	return latest, nil
}

type CancelCommand struct {
	ReservationID string
	// ActorUserID is a participant id or ActorSystem for sweep cancels.
	ActorUserID string
	Reason      string
}

// Cancel terminates the reservation, computes the refund, and releases the
// vehicle days in the same logical step. Owner-initiated cancellation always
// refunds the renter in full.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Reservation, error) {
	r, err := s.store.Get(ctx, cmd.ReservationID)
	if err != nil {
		return nil, err
	}
	cancelledBy := ActorSystem
	if cmd.ActorUserID != ActorSystem {
		role, err := RoleOf(r, cmd.ActorUserID)
		if err != nil {
			return nil, err
		}
		cancelledBy = string(role)
	}

	isPaid := r.PaymentStatus == PaymentCaptured
	var res refund.Result
	if cancelledBy == string(RoleRenter) {
		policy := refund.PolicyModerate
		if v, err := s.vehicles.Get(ctx, r.VehicleID); err == nil {
			policy = refund.Policy(v.CancellationPolicy)
		}
		res = refund.Compute(policy, r.StartDate, r.TotalAmount, isPaid, time.Now())
	} else {
		// Owner or system cancel: the renter is always made whole.
		res = refund.OwnerCancel(r.TotalAmount, isPaid)
	}

	reason := cmd.Reason
	if reason == "" {
		reason = res.Reason
	}
	patch := Patch{
		CancelledBy:        &cancelledBy,
		RefundPercent:      &res.Percent,
		RefundAmount:       &res.RefundAmount,
		PenaltyAmount:      &res.PenaltyAmount,
		CancellationReason: &reason,
	}
	latest, performed, err := s.transition(ctx, r, StatusCancelled, patch,
		timeline.EventReservationCancelled, "", cmd.ActorUserID,
		map[string]any{"cancelled_by": cancelledBy, "refund_percent": res.Percent, "refund_amount": res.RefundAmount})
	if err != nil {
		return nil, err
	}
	if performed {
		// Lock release belongs to the same logical step as the cancel;
		// Release is idempotent so a retry after a crash here converges.
		if err := s.locks.Release(ctx, r.VehicleID, r.ID, r.StartDate, r.EndDate); err != nil {
			return nil, err
		}
		if cmd.ActorUserID != ActorSystem {
			s.notify(ctx, Counterparty(r, cmd.ActorUserID), notify.TemplateReservationCancelled,
				map[string]any{"reservation_id": r.ID, "cancelled_by": cancelledBy})
		} else {
			s.notify(ctx, r.RenterUserID, notify.TemplateReservationCancelled,
				map[string]any{"reservation_id": r.ID, "cancelled_by": cancelledBy})
		}
	}
	return latest, nil
}

// MarkPaymentCaptured records the gateway's capture callback and confirms
// the booking.
func (s *Service) MarkPaymentCaptured(ctx context.Context, id string) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.PaymentStatus == PaymentPending {
		return nil, ErrPaymentNotInitialized
	}
	ps := PaymentCaptured
	latest, performed, err := s.transition(ctx, r, StatusPickupPending,
		Patch{PaymentStatus: &ps},
		timeline.EventPaymentCaptured, "", ActorSystem, nil)
	if err != nil {
		return nil, err
	}
	if performed {
		s.notify(ctx, r.OwnerUserID, notify.TemplatePaymentCaptured, map[string]any{"reservation_id": r.ID})
	}
	return latest, nil
}

// CompleteCheckin fires once both checkin condition reports exist: it moves
// pickup_pending to in_progress and places the deposit hold as one logical
// unit. A raced-out duplicate call cancels its own authorization, so the
// hold fires exactly once.
func (s *Service) CompleteCheckin(ctx context.Context, id string) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusInProgress {
		return r, nil
	}
	if r.Status != StatusPickupPending {
		return nil, ErrInvalidTransition
	}
	if r.PaymentStatus != PaymentCaptured {
		return nil, ErrPaymentNotCompleted
	}

	hold, err := s.ledger.Hold(ctx, r.DepositStatus, r.RenterUserID, r.DepositAmount)
	if err != nil {
		return nil, err
	}
	patch := Patch{DepositStatus: &hold.State}
	if hold.Ref != "" {
		patch.DepositHoldRef = &hold.Ref
	}
	latest, performed, err := s.transition(ctx, r, StatusInProgress, patch,
		timeline.EventCheckinCompleted, "", ActorSystem, nil)
	if err != nil || !performed {
		// Undo our authorization if someone else completed checkin first
		// or the transition failed outright.
		if hold.Ref != "" && !hold.Skipped {
			if _, relErr := s.ledger.Release(ctx, deposit.StateHeld, hold.Ref); relErr != nil && s.log != nil {
				s.log.WithError(relErr).WithField("reservation_id", id).
					Error("orphaned deposit hold could not be cancelled")
			}
		}
		return latest, err
	}
	if !hold.Skipped {
		if _, _, err := s.timeline.Emit(ctx, timeline.EmitCommand{
			ReservationID: r.ID,
			Type:          timeline.EventDepositHeld,
			ActorUserID:   ActorSystem,
			Payload:       map[string]any{"amount": r.DepositAmount, "hold_ref": hold.Ref},
			Status:        string(StatusInProgress),
		}); err != nil {
			return nil, err
		}
	}
	s.notify(ctx, r.OwnerUserID, notify.TemplateCheckinComplete, map[string]any{"reservation_id": r.ID})
	s.notify(ctx, r.RenterUserID, notify.TemplateCheckinComplete, map[string]any{"reservation_id": r.ID})
	return latest, nil
}

// AdvanceToDropoff moves a rental past its end date into dropoff_pending.
func (s *Service) AdvanceToDropoff(ctx context.Context, id string) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	latest, performed, err := s.transition(ctx, r, StatusDropoffPending, Patch{},
		timeline.EventDropoffPending, "", ActorSystem, nil)
	if err != nil {
		return nil, err
	}
	if performed {
		s.notify(ctx, r.OwnerUserID, notify.TemplateCheckoutComplete, map[string]any{"reservation_id": r.ID, "phase": "dropoff_due"})
		s.notify(ctx, r.RenterUserID, notify.TemplateCheckoutComplete, map[string]any{"reservation_id": r.ID, "phase": "dropoff_due"})
	}
	return latest, nil
}

// CompleteCheckout fires once both checkout reports exist: dropoff_pending
// to completed, then the deposit release. The transition wins or loses
// before any money moves, so a racing dispute cannot see a released hold.
func (s *Service) CompleteCheckout(ctx context.Context, id string) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusCompleted {
		return r, nil
	}
	latest, performed, err := s.transition(ctx, r, StatusCompleted, Patch{},
		timeline.EventCheckoutCompleted, "", ActorSystem, nil)
	if err != nil || !performed {
		return latest, err
	}
	latest, err = s.releaseDeposit(ctx, latest)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, r.OwnerUserID, notify.TemplateCheckoutComplete, map[string]any{"reservation_id": r.ID})
	s.notify(ctx, r.RenterUserID, notify.TemplateCheckoutComplete, map[string]any{"reservation_id": r.ID})
	return latest, nil
}

func (s *Service) releaseDeposit(ctx context.Context, r *Reservation) (*Reservation, error) {
	ref := ""
	if r.DepositHoldRef != nil {
		ref = *r.DepositHoldRef
	}
	rel, err := s.ledger.Release(ctx, r.DepositStatus, ref)
	if err != nil {
		return nil, err
	}
	if rel.Skipped {
		return r, nil
	}
	ok, err := s.store.ApplyPatch(ctx, r.ID, r.Version, Patch{DepositStatus: &rel.State})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	if _, _, err := s.timeline.Emit(ctx, timeline.EmitCommand{
		ReservationID: r.ID,
		Type:          timeline.EventDepositReleased,
		ActorUserID:   ActorSystem,
		Payload:       map[string]any{"hold_ref": ref},
		Status:        string(r.Status),
	}); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, r.ID)
}

// MarkDisputed is invoked by the dispute workflow after its own guards pass.
func (s *Service) MarkDisputed(ctx context.Context, id, actorID, disputeID string) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	latest, performed, err := s.transition(ctx, r, StatusDisputed, Patch{},
		timeline.EventDisputeOpened, r.ID+":dispute_opened:"+disputeID, actorID,
		map[string]any{"dispute_id": disputeID})
	if err != nil {
		return nil, err
	}
	if performed {
		s.notify(ctx, Counterparty(r, actorID), notify.TemplateDisputeOpened,
			map[string]any{"reservation_id": r.ID, "dispute_id": disputeID})
	}
	return latest, nil
}

type ResolveOutcome struct {
	DisputeID string
	// RetainAmount of the held deposit goes to the owner; zero releases in
	// full.
	RetainAmount int64
	AdminUserID  string
}

// ResolveDisputed closes the dispute path: disputed back to completed, then
// the matching deposit ledger action.
func (s *Service) ResolveDisputed(ctx context.Context, id string, outcome ResolveOutcome) (*Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	latest, performed, err := s.transition(ctx, r, StatusCompleted, Patch{},
		timeline.EventDisputeResolved, r.ID+":dispute_resolved:"+outcome.DisputeID, outcome.AdminUserID,
		map[string]any{"dispute_id": outcome.DisputeID, "retained_amount": outcome.RetainAmount})
	if err != nil {
		return nil, err
	}
	if !performed {
		return latest, nil
	}

	if outcome.RetainAmount <= 0 {
		latest, err = s.releaseDeposit(ctx, latest)
		if err != nil {
			return nil, err
		}
	} else {
		ref := ""
		if latest.DepositHoldRef != nil {
			ref = *latest.DepositHoldRef
		}
		ret, err := s.ledger.Retain(ctx, latest.DepositStatus, ref, outcome.RetainAmount, latest.DepositAmount)
		if err != nil {
			return nil, err
		}
		if !ret.Skipped {
			ok, err := s.store.ApplyPatch(ctx, latest.ID, latest.Version, Patch{
				DepositStatus:   &ret.State,
				DepositRetained: &ret.Retained,
			})
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrConflict
			}
			if _, _, err := s.timeline.Emit(ctx, timeline.EmitCommand{
				ReservationID: r.ID,
				Type:          timeline.EventDepositRetained,
				ActorUserID:   outcome.AdminUserID,
				Payload:       map[string]any{"retained_amount": ret.Retained},
				Status:        string(StatusCompleted),
			}); err != nil {
				return nil, err
			}
			latest, err = s.store.Get(ctx, latest.ID)
			if err != nil {
				return nil, err
			}
		}
	}
	s.notify(ctx, r.RenterUserID, notify.TemplateDisputeResolved, map[string]any{"reservation_id": r.ID})
	s.notify(ctx, r.OwnerUserID, notify.TemplateDisputeResolved, map[string]any{"reservation_id": r.ID})
	return latest, nil
}
