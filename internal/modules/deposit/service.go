// README: Deposit ledger. Every operation checks the current state first and
// reports Skipped on a no-op, so retries and racing callers are harmless.
package deposit

import "context"

type Ledger struct {
	gateway Gateway
}

func NewLedger(gateway Gateway) *Ledger {
	return &Ledger{gateway: gateway}
}

type HoldResult struct {
	Ref     string
	State   State
	Skipped bool
}

// Hold places the reversible authorization once. Any state other than none
// means a hold was already processed and the call is skipped.
func (l *Ledger) Hold(ctx context.Context, current State, customerID string, amount int64) (HoldResult, error) {
	if current != StateNone {
		return HoldResult{State: current, Skipped: true}, nil
	}
	// Nothing to hold for a zero-deposit vehicle.
	if amount <= 0 {
		return HoldResult{State: StateNone, Skipped: true}, nil
	}
	ref, err := l.gateway.AuthorizeHold(ctx, customerID, amount)
	if err != nil {
		return HoldResult{}, err
	}
	return HoldResult{Ref: ref, State: StateHeld}, nil
}

type ReleaseResult struct {
	State   State
	Skipped bool
}

// Release cancels the authorization in full.
func (l *Ledger) Release(ctx context.Context, current State, holdRef string) (ReleaseResult, error) {
	if current != StateHeld {
		return ReleaseResult{State: current, Skipped: true}, nil
	}
	if holdRef != "" {
		if err := l.gateway.CancelHold(ctx, holdRef); err != nil {
			return ReleaseResult{}, err
		}
	}
	return ReleaseResult{State: StateReleased}, nil
}

type RetainResult struct {
	State    State
	Retained int64
	Skipped  bool
}

// Retain captures retainAmount of the held deposit; capturing less than the
// full hold releases the remainder on the rail and lands in
// partially_retained.
func (l *Ledger) Retain(ctx context.Context, current State, holdRef string, retainAmount, heldAmount int64) (RetainResult, error) {
	if current != StateHeld {
		return RetainResult{State: current, Skipped: true}, nil
	}
	if retainAmount <= 0 {
		r, err := l.Release(ctx, current, holdRef)
		if err != nil {
			return RetainResult{}, err
		}
		return RetainResult{State: r.State, Skipped: r.Skipped}, nil
	}
	if retainAmount > heldAmount {
		retainAmount = heldAmount
	}
	if holdRef != "" {
		if err := l.gateway.CaptureHold(ctx, holdRef, retainAmount); err != nil {
			return RetainResult{}, err
		}
	}
	state := StatePartiallyRetained
	if retainAmount == heldAmount {
		state = StateRetained
	}
	return RetainResult{State: state, Retained: retainAmount}, nil
}
