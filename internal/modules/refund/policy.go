// README: Cancellation refund policy engine; pure computation, no side effects.
package refund

import (
	"math"
	"time"
)

type Policy string

const (
	PolicyFlexible Policy = "flexible"
	PolicyModerate Policy = "moderate"
	PolicyStrict   Policy = "strict"
)

type Result struct {
	Percent       float64
	RefundAmount  int64
	PenaltyAmount int64
	Reason        string
	IsFree        bool
}

// Compute returns the refund owed to the renter for a renter-initiated
// cancellation. Unpaid reservations always refund in full; paid ones walk
// the policy's hours-until-start staircase.
func Compute(policy Policy, startDate time.Time, totalAmount int64, isPaid bool, now time.Time) Result {
	if !isPaid {
		return apply(totalAmount, 1, "not_paid", true)
	}
	hours := startDate.Sub(now).Hours()
	switch policy {
	case PolicyFlexible:
		if hours >= 24 {
			return apply(totalAmount, 1, "flexible_full", true)
		}
		return apply(totalAmount, 0.5, "flexible_half", false)
	case PolicyModerate:
		if hours >= 72 {
			return apply(totalAmount, 1, "moderate_full", true)
		}
		if hours >= 24 {
			return apply(totalAmount, 0.5, "moderate_half", false)
		}
		return apply(totalAmount, 0, "moderate_none", false)
	case PolicyStrict:
		if hours >= 168 {
			return apply(totalAmount, 1, "strict_full", true)
		}
		if hours >= 72 {
			return apply(totalAmount, 0.5, "strict_half", false)
		}
		return apply(totalAmount, 0, "strict_none", false)
	}
	// Unknown tiers behave like moderate rather than failing a cancellation.
	return Compute(PolicyModerate, startDate, totalAmount, isPaid, now)
}

// OwnerCancel returns the owner-initiated result: the renter is always
// made whole, regardless of the vehicle's configured policy.
func OwnerCancel(totalAmount int64, isPaid bool) Result {
	reason := "owner_cancelled"
	if !isPaid {
		reason = "not_paid"
	}
	return apply(totalAmount, 1, reason, true)
}

func apply(total int64, percent float64, reason string, free bool) Result {
	refund := int64(math.Round(float64(total) * percent))
	return Result{
		Percent:       percent,
		RefundAmount:  refund,
		PenaltyAmount: total - refund,
		Reason:        reason,
		IsFree:        free,
	}
}
