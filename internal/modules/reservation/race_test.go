// README: Concurrency tests for the transition orchestrator (run with -race).
package reservation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"roam/internal/modules/deposit"
)

// countingGateway wraps the stub rail to count authorizations and cancels.
type countingGateway struct {
	deposit.Gateway
	authorized int32
	cancelled  int32
}

func (g *countingGateway) AuthorizeHold(ctx context.Context, customerID string, amount int64) (string, error) {
	atomic.AddInt32(&g.authorized, 1)
	return g.Gateway.AuthorizeHold(ctx, customerID, amount)
}

func (g *countingGateway) CancelHold(ctx context.Context, holdRef string) error {
	atomic.AddInt32(&g.cancelled, 1)
	return g.Gateway.CancelHold(ctx, holdRef)
}

func TestConcurrentAcceptVsCancel(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	r := e.requestFuture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := e.svc.Accept(ctx, r.ID, "owner1")
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := e.svc.Cancel(ctx, CancelCommand{ReservationID: r.ID, ActorUserID: "renter1"})
		errs <- err
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && err != ErrConflict && err != ErrInvalidTransition {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	latest, err := e.svc.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if latest.Status != StatusAcceptedPendingPayment && latest.Status != StatusCancelled {
		t.Fatalf("unexpected final status: %s", latest.Status)
	}
	if latest.Status == StatusCancelled {
		booked, _ := e.locks.Booked(ctx, "veh1")
		if len(booked) != 0 {
			t.Fatalf("days still claimed after cancel won: %v", booked)
		}
	}
}

func TestConcurrentCheckinHoldsDepositOnce(t *testing.T) {
	ctx := context.Background()
	gw := &countingGateway{Gateway: deposit.NewStubGateway()}
	e := newTestEnvWithGateway(t, gw)
	r := e.requestFuture(t)
	e.toPickupPending(t, r.ID)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.CompleteCheckin(ctx, r.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && err != ErrConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	latest := assertReservationStatus(t, e, r.ID, StatusInProgress)
	if latest.DepositStatus != deposit.StateHeld || latest.DepositHoldRef == nil {
		t.Fatalf("deposit not held: %s", latest.DepositStatus)
	}
	// every losing authorization cancelled itself; exactly one hold survives
	active := atomic.LoadInt32(&gw.authorized) - atomic.LoadInt32(&gw.cancelled)
	if active != 1 {
		t.Fatalf("active holds = %d (authorized %d, cancelled %d)",
			active, gw.authorized, gw.cancelled)
	}
}

func TestConcurrentRequestSameDates(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	const renters = 6
	var wg sync.WaitGroup
	var success int32
	start := time.Now().UTC().AddDate(0, 1, 0)
	for i := 0; i < renters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.svc.Request(ctx, RequestCommand{
				VehicleID:      "veh1",
				RenterUserID:   fmt.Sprintf("renter%d", i),
				RenterVerified: true,
				StartDate:      start,
				EndDate:        start.AddDate(0, 0, 3),
			})
			if err == nil {
				atomic.AddInt32(&success, 1)
			} else if err != ErrVehicleUnavailable {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly 1 booking, got %d", success)
	}
	booked, _ := e.locks.Booked(ctx, "veh1")
	if len(booked) != 3 {
		t.Fatalf("claimed %d days, want 3", len(booked))
	}
}
