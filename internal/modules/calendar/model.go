// README: Per-vehicle booking calendar; one bucket maps booked days to the owning reservation.
package calendar

import (
	"errors"
	"time"
)

const dayFormat = "2006-01-02"

var (
	ErrVehicleUnavailable = errors.New("vehicle unavailable")
	ErrBadRange           = errors.New("invalid date range")
)

// Bucket is the single lock record per vehicle. A day key's presence means
// the vehicle is unavailable that day.
type Bucket struct {
	VehicleID string
	Dates     map[string]string // ISO day -> reservation id
}

// DaysBetween enumerates UTC calendar days, start inclusive and end exclusive.
func DaysBetween(start, endExclusive time.Time) []string {
	start = start.UTC().Truncate(24 * time.Hour)
	endExclusive = endExclusive.UTC().Truncate(24 * time.Hour)
	var days []string
	for d := start; d.Before(endExclusive); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dayFormat))
	}
	return days
}
