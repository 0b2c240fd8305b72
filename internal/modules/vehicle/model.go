// README: Minimal vehicle surface read by the booking core. Listing and
// search live elsewhere.
package vehicle

import "errors"

var ErrNotFound = errors.New("vehicle not found")

type Vehicle struct {
	ID                 string
	OwnerUserID        string
	DailyRate          int64
	DepositAmount      int64
	Currency           string
	CancellationPolicy string // flexible, moderate, strict
	// Days the owner has blocked out, ISO dates.
	BlockedDates []string
}

func (v *Vehicle) IsBlocked(day string) bool {
	for _, b := range v.BlockedDates {
		if b == day {
			return true
		}
	}
	return false
}
