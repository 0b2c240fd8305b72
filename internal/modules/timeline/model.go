// README: Reservation event log and chat models. Events are append-only; every
// reservation has one thread whose messages mirror the event history.
package timeline

import "time"

// Event types emitted by the transactional core.
const (
	EventReservationCreated   = "reservation_created"
	EventReservationAccepted  = "reservation_accepted"
	EventReservationRejected  = "reservation_rejected"
	EventReservationCancelled = "reservation_cancelled"
	EventPaymentInitialized   = "payment_initialized"
	EventPaymentCaptured      = "payment_captured"
	EventCheckinCompleted     = "checkin_completed"
	EventReportSubmitted      = "condition_report_submitted"
	EventDropoffPending       = "dropoff_pending"
	EventCheckoutCompleted    = "checkout_completed"
	EventDepositHeld          = "deposit_held"
	EventDepositReleased      = "deposit_released"
	EventDepositRetained      = "deposit_retained"
	EventDisputeOpened        = "dispute_opened"
	EventDisputeResolved      = "dispute_resolved"
)

// Event is immutable once written. Unique per (reservation, idempotency key).
type Event struct {
	ID             string
	ReservationID  string
	Type           string
	ActorUserID    string
	IdempotencyKey string
	Payload        map[string]any
	CreatedAt      time.Time
}

type Thread struct {
	ReservationID  string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

type Audience string

const (
	AudienceAll    Audience = "all"
	AudienceOwner  Audience = "owner"
	AudienceRenter Audience = "renter"
)

const (
	KindSystem  = "system"
	KindUser    = "user"
	KindActions = "actions"
)

// Message belongs to a reservation's thread. System and user messages are
// insert-once, deduplicated by DedupKey; the single actions message per
// reservation is upserted in place.
type Message struct {
	ID            string
	ReservationID string
	DedupKey      string
	Kind          string
	AuthorUserID  string
	Text          string
	Actions       []string
	Audience      Audience
	CreatedAt     time.Time
}
