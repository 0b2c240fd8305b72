// README: Security-deposit hold states.
package deposit

type State string

const (
	StateNone              State = "none"
	StateHeld              State = "held"
	StateReleased          State = "released"
	StateRetained          State = "retained"
	StatePartiallyRetained State = "partially_retained"
)
