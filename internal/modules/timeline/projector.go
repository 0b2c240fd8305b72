// README: Pure projection of events into chat copy and suggested actions.
package timeline

import "fmt"

// Compose derives the message shown in the reservation thread for an event.
func Compose(eventType string, payload map[string]any) (text string, audience Audience) {
	switch eventType {
	case EventReservationCreated:
		return "Reservation requested. The owner has been asked to respond.", AudienceAll
	case EventReservationAccepted:
		return "The owner accepted the reservation.", AudienceAll
	case EventReservationRejected:
		return "The owner declined the reservation.", AudienceAll
	case EventReservationCancelled:
		by, _ := payload["cancelled_by"].(string)
		if by == "" {
			by = "a participant"
		}
		return fmt.Sprintf("Reservation cancelled by %s.", by), AudienceAll
	case EventPaymentInitialized:
		return "Payment is ready to complete. The booking holds for 30 minutes.", AudienceRenter
	case EventPaymentCaptured:
		return "Payment received. The booking is confirmed.", AudienceAll
	case EventReportSubmitted:
		role, _ := payload["role"].(string)
		phase, _ := payload["phase"].(string)
		return fmt.Sprintf("The %s submitted the %s condition report.", role, phase), AudienceAll
	case EventCheckinCompleted:
		return "Both condition reports are in. The rental is underway.", AudienceAll
	case EventDropoffPending:
		return "The rental period has ended. Both parties should submit return condition reports.", AudienceAll
	case EventCheckoutCompleted:
		return "Return confirmed by both parties. The rental is complete.", AudienceAll
	case EventDepositHeld:
		return "The security deposit hold has been placed.", AudienceRenter
	case EventDepositReleased:
		return "The security deposit hold has been released.", AudienceRenter
	case EventDepositRetained:
		return "Part or all of the security deposit was retained.", AudienceRenter
	case EventDisputeOpened:
		return "A dispute was opened. An operator will review the reports.", AudienceAll
	case EventDisputeResolved:
		return "The dispute has been resolved.", AudienceAll
	}
	return fmt.Sprintf("Reservation update: %s.", eventType), AudienceAll
}

// ActionsForStatus lists the legal next moves shown in the pinned actions
// message for the current reservation status.
func ActionsForStatus(status string) []string {
	switch status {
	case "requested":
		return []string{"accept", "reject", "cancel"}
	case "accepted_pending_payment":
		return []string{"complete_payment", "cancel"}
	case "pickup_pending":
		return []string{"submit_checkin_report", "cancel"}
	case "in_progress":
		return []string{"message"}
	case "dropoff_pending":
		return []string{"submit_checkout_report", "open_dispute"}
	case "completed":
		return []string{"open_dispute"}
	case "disputed":
		return []string{"await_resolution"}
	}
	// Terminal rejected/cancelled threads keep chat open, nothing else.
	return []string{"message"}
}
