// README: Dispute aggregate. At most one open dispute per reservation;
// resolution is terminal.
package dispute

import (
	"errors"
	"time"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

type Resolution string

const (
	ResolutionNoPenalty Resolution = "no_penalty"
	ResolutionPartial   Resolution = "partial"
	ResolutionFull      Resolution = "full"
)

const (
	MinDescriptionLen = 10
	// WindowAfterCheckout bounds disputes opened on an already-completed
	// rental.
	WindowAfterCheckout = 48 * time.Hour
)

var (
	ErrNotFound            = errors.New("dispute not found")
	ErrBadRequest          = errors.New("bad request")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidStatus       = errors.New("reservation status does not allow a dispute")
	ErrAlreadyOpen         = errors.New("dispute already open")
	ErrWindowExpired       = errors.New("dispute window expired")
	ErrNoCheckoutReport    = errors.New("no checkout condition report")
	ErrDescriptionTooShort = errors.New("description too short")
	ErrAlreadyResolved     = errors.New("dispute already resolved")
)

type Dispute struct {
	ID             string
	ReservationID  string
	VehicleID      string
	OpenedByUserID string
	OpenedByRole   string
	Reason         string
	Description    string
	PhotoRefs      []string
	Status         Status
	Resolution     *Resolution
	RetainedAmount *int64
	AdminNote      *string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}
