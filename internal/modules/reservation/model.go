// README: Reservation aggregate and status definitions.
package reservation

import (
	"time"

	"roam/internal/modules/deposit"
)

type Status string

const (
	StatusRequested              Status = "requested"
	StatusAcceptedPendingPayment Status = "accepted_pending_payment"
	StatusPickupPending          Status = "pickup_pending"
	StatusInProgress             Status = "in_progress"
	StatusDropoffPending         Status = "dropoff_pending"
	StatusCompleted              Status = "completed"
	StatusRejected               Status = "rejected"
	StatusCancelled              Status = "cancelled"
	StatusDisputed               Status = "disputed"
)

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentInitialized PaymentStatus = "initialized"
	PaymentCaptured    PaymentStatus = "captured"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleRenter Role = "renter"
)

// ActorSystem marks transitions driven by sweeps rather than a participant.
const ActorSystem = "system"

// Reservation is the aggregate root. Status is mutated exclusively through
// the transition orchestrator; it reaches a terminal status, never deletion.
type Reservation struct {
	ID           string
	VehicleID    string
	RenterUserID string
	OwnerUserID  string
	Status       Status
	// StartDate inclusive, EndDate exclusive, UTC calendar dates.
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	// Version increments on every patch and participates in the
	// compare-and-set guard.
	Version int

	TotalAmount      int64
	CommissionAmount int64
	OwnerPayout      int64
	DepositAmount    int64
	Currency         string

	PaymentStatus   PaymentStatus
	DepositStatus   deposit.State
	DepositHoldRef  *string
	DepositRetained *int64

	AcceptedAt *time.Time

	CancelledBy        *string
	RefundPercent      *float64
	RefundAmount       *int64
	PenaltyAmount      *int64
	CancellationReason *string
}

// AllowedTransitions represents the reservation lifecycle as code.
var AllowedTransitions = map[Status][]Status{
	StatusRequested:              {StatusAcceptedPendingPayment, StatusRejected, StatusCancelled},
	StatusAcceptedPendingPayment: {StatusPickupPending, StatusCancelled},
	StatusPickupPending:          {StatusInProgress, StatusCancelled},
	StatusInProgress:             {StatusDropoffPending},
	StatusDropoffPending:         {StatusCompleted, StatusDisputed},
	// Time-boxed exception path: a completed rental can still be disputed.
	StatusCompleted: {StatusDisputed},
	StatusDisputed:  {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// RoleOf derives the caller's role from the reservation row. Deliberately
// not a permissions framework.
func RoleOf(r *Reservation, userID string) (Role, error) {
	switch userID {
	case r.OwnerUserID:
		return RoleOwner, nil
	case r.RenterUserID:
		return RoleRenter, nil
	}
	return "", ErrForbidden
}

// Counterparty returns the other participant's user id.
func Counterparty(r *Reservation, userID string) string {
	if userID == r.OwnerUserID {
		return r.RenterUserID
	}
	return r.OwnerUserID
}

// Patch carries the side-effect field changes applied alongside a status
// transition. Nil fields are left untouched.
type Patch struct {
	PaymentStatus      *PaymentStatus
	DepositStatus      *deposit.State
	DepositHoldRef     *string
	DepositRetained    *int64
	AcceptedAt         *time.Time
	CancelledBy        *string
	RefundPercent      *float64
	RefundAmount       *int64
	PenaltyAmount      *int64
	CancellationReason *string
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p == Patch{}
}

// AppliedTo reports whether every set field of the patch already matches the
// reservation; used for the orchestrator's retry short-circuit.
func (p Patch) AppliedTo(r *Reservation) bool {
	if p.PaymentStatus != nil && r.PaymentStatus != *p.PaymentStatus {
		return false
	}
	if p.DepositStatus != nil && r.DepositStatus != *p.DepositStatus {
		return false
	}
	if p.DepositHoldRef != nil && (r.DepositHoldRef == nil || *r.DepositHoldRef != *p.DepositHoldRef) {
		return false
	}
	if p.DepositRetained != nil && (r.DepositRetained == nil || *r.DepositRetained != *p.DepositRetained) {
		return false
	}
	if p.CancelledBy != nil && (r.CancelledBy == nil || *r.CancelledBy != *p.CancelledBy) {
		return false
	}
	if p.RefundPercent != nil && (r.RefundPercent == nil || *r.RefundPercent != *p.RefundPercent) {
		return false
	}
	if p.RefundAmount != nil && (r.RefundAmount == nil || *r.RefundAmount != *p.RefundAmount) {
		return false
	}
	if p.PenaltyAmount != nil && (r.PenaltyAmount == nil || *r.PenaltyAmount != *p.PenaltyAmount) {
		return false
	}
	if p.CancellationReason != nil && (r.CancellationReason == nil || *r.CancellationReason != *p.CancellationReason) {
		return false
	}
	if p.AcceptedAt != nil && r.AcceptedAt == nil {
		return false
	}
	return true
}
