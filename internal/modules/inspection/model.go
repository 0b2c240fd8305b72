// README: Condition reports: one per (reservation, phase, role), immutable
// once submitted.
package inspection

import (
	"errors"
	"time"
)

type Phase string

const (
	PhaseCheckin  Phase = "checkin"
	PhaseCheckout Phase = "checkout"
)

// RequiredSlots are the nine photo angles every report must cover.
var RequiredSlots = []string{
	"front", "front_left", "front_right",
	"back", "back_left", "back_right",
	"interior_front", "interior_back", "dashboard",
}

const MaxDetailPhotos = 6

var (
	ErrInvalidStatus         = errors.New("reservation not in the expected status for this phase")
	ErrAlreadySubmitted      = errors.New("condition report already submitted")
	ErrMissingRequiredPhotos = errors.New("missing required photos")
	ErrTooManyDetailPhotos   = errors.New("too many detail photos")
)

type DetailPhoto struct {
	Ref  string
	Note string
}

// Report stores opaque blob refs, never bytes.
type Report struct {
	ID            string
	ReservationID string
	Phase         Phase
	Role          string // owner or renter, derived from the reservation
	// RequiredPhotos maps each slot name to a blob ref.
	RequiredPhotos    map[string]string
	DetailPhotos      []DetailPhoto
	Video360Ref       *string
	SubmittedByUserID string
	CompletedAt       time.Time
}
