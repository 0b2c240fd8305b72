// README: Quorum gate tests: validation, dedup, both-phases firing, and the
// two-final-submitters race (run with -race).
package inspection

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"roam/internal/modules/calendar"
	"roam/internal/modules/deposit"
	"roam/internal/modules/reservation"
	"roam/internal/modules/timeline"
	"roam/internal/modules/vehicle"
)

type gateEnv struct {
	svc          *Service
	reservations *reservation.Service
	gateway      deposit.Gateway
	reservation  *reservation.Reservation
}

func newGateEnv(t *testing.T, gw deposit.Gateway) *gateEnv {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	vehicles := vehicle.NewMemStore()
	vehicles.Put(&vehicle.Vehicle{
		ID: "veh1", OwnerUserID: "owner1", DailyRate: 100,
		DepositAmount: 500, Currency: "USD", CancellationPolicy: "moderate",
	})
	tl := timeline.NewService(timeline.NewMemStore())
	resSvc := reservation.NewService(reservation.NewMemStore(), vehicles,
		calendar.NewService(calendar.NewMemStore()), tl,
		deposit.NewLedger(gw), nil, log, reservation.Config{})

	ctx := context.Background()
	start := time.Now().UTC().AddDate(0, 1, 0)
	r, err := resSvc.Request(ctx, reservation.RequestCommand{
		VehicleID: "veh1", RenterUserID: "renter1", RenterVerified: true,
		StartDate: start, EndDate: start.AddDate(0, 0, 3),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := resSvc.Accept(ctx, r.ID, "owner1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := resSvc.MarkPaymentCaptured(ctx, r.ID); err != nil {
		t.Fatalf("capture: %v", err)
	}

	return &gateEnv{
		svc:          NewService(NewMemStore(), resSvc, tl),
		reservations: resSvc,
		gateway:      gw,
		reservation:  r,
	}
}

func allSlots() map[string]string {
	m := make(map[string]string, len(RequiredSlots))
	for _, s := range RequiredSlots {
		m[s] = "blob://" + s
	}
	return m
}

func (e *gateEnv) submit(t *testing.T, actor string, phase Phase) (*Report, error) {
	t.Helper()
	return e.svc.Submit(context.Background(), SubmitCommand{
		ReservationID:  e.reservation.ID,
		ActorUserID:    actor,
		Phase:          phase,
		RequiredPhotos: allSlots(),
	})
}

func (e *gateEnv) status(t *testing.T) reservation.Status {
	t.Helper()
	r, err := e.reservations.Get(context.Background(), e.reservation.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return r.Status
}

func TestSubmitValidation(t *testing.T) {
	e := newGateEnv(t, deposit.NewStubGateway())
	ctx := context.Background()

	photos := allSlots()
	delete(photos, "dashboard")
	if _, err := e.svc.Submit(ctx, SubmitCommand{
		ReservationID: e.reservation.ID, ActorUserID: "renter1",
		Phase: PhaseCheckin, RequiredPhotos: photos,
	}); err != ErrMissingRequiredPhotos {
		t.Fatalf("missing slot: %v, want ErrMissingRequiredPhotos", err)
	}

	tooMany := make([]DetailPhoto, MaxDetailPhotos+1)
	for i := range tooMany {
		tooMany[i] = DetailPhoto{Ref: "blob://d"}
	}
	if _, err := e.svc.Submit(ctx, SubmitCommand{
		ReservationID: e.reservation.ID, ActorUserID: "renter1",
		Phase: PhaseCheckin, RequiredPhotos: allSlots(), DetailPhotos: tooMany,
	}); err != ErrTooManyDetailPhotos {
		t.Fatalf("too many detail photos: %v, want ErrTooManyDetailPhotos", err)
	}

	if _, err := e.svc.Submit(ctx, SubmitCommand{
		ReservationID: e.reservation.ID, ActorUserID: "renter1",
		Phase: Phase("delivery"), RequiredPhotos: allSlots(),
	}); err != ErrInvalidStatus {
		t.Fatalf("unknown phase: %v, want ErrInvalidStatus", err)
	}

	if _, err := e.submit(t, "stranger", PhaseCheckin); err != reservation.ErrForbidden {
		t.Fatalf("stranger submit: %v, want ErrForbidden", err)
	}

	// checkout report while still pickup_pending
	if _, err := e.submit(t, "renter1", PhaseCheckout); err != ErrInvalidStatus {
		t.Fatalf("checkout during pickup: %v, want ErrInvalidStatus", err)
	}
}

func TestSubmitDuplicateRejected(t *testing.T) {
	e := newGateEnv(t, deposit.NewStubGateway())
	if _, err := e.submit(t, "renter1", PhaseCheckin); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := e.submit(t, "renter1", PhaseCheckin); err != ErrAlreadySubmitted {
		t.Fatalf("second submit: %v, want ErrAlreadySubmitted", err)
	}
}

func TestCheckinQuorumFiresOnSecondReport(t *testing.T) {
	gw := deposit.NewStubGateway()
	e := newGateEnv(t, gw)

	rep, err := e.submit(t, "renter1", PhaseCheckin)
	if err != nil {
		t.Fatalf("renter submit: %v", err)
	}
	if rep.Role != string(reservation.RoleRenter) {
		t.Fatalf("role = %s, derived from reservation, want renter", rep.Role)
	}
	if got := e.status(t); got != reservation.StatusPickupPending {
		t.Fatalf("after one report status = %s, want pickup_pending", got)
	}

	if _, err := e.submit(t, "owner1", PhaseCheckin); err != nil {
		t.Fatalf("owner submit: %v", err)
	}
	if got := e.status(t); got != reservation.StatusInProgress {
		t.Fatalf("after both reports status = %s, want in_progress", got)
	}
	r, _ := e.reservations.Get(context.Background(), e.reservation.ID)
	if r.DepositStatus != deposit.StateHeld || r.DepositHoldRef == nil {
		t.Fatalf("deposit not held after checkin quorum: %s", r.DepositStatus)
	}
}

func TestCheckoutQuorumCompletesRental(t *testing.T) {
	gw := deposit.NewStubGateway()
	e := newGateEnv(t, gw)
	ctx := context.Background()

	if _, err := e.submit(t, "renter1", PhaseCheckin); err != nil {
		t.Fatalf("renter checkin: %v", err)
	}
	if _, err := e.submit(t, "owner1", PhaseCheckin); err != nil {
		t.Fatalf("owner checkin: %v", err)
	}
	if _, err := e.reservations.AdvanceToDropoff(ctx, e.reservation.ID); err != nil {
		t.Fatalf("dropoff: %v", err)
	}

	if _, err := e.submit(t, "owner1", PhaseCheckout); err != nil {
		t.Fatalf("owner checkout: %v", err)
	}
	if got := e.status(t); got != reservation.StatusDropoffPending {
		t.Fatalf("after one checkout report status = %s", got)
	}
	if _, err := e.submit(t, "renter1", PhaseCheckout); err != nil {
		t.Fatalf("renter checkout: %v", err)
	}
	if got := e.status(t); got != reservation.StatusCompleted {
		t.Fatalf("after checkout quorum status = %s, want completed", got)
	}

	r, _ := e.reservations.Get(ctx, e.reservation.ID)
	if r.DepositStatus != deposit.StateReleased {
		t.Fatalf("deposit = %s, want released", r.DepositStatus)
	}
	_, _, cancelled, ok := gw.Hold(*r.DepositHoldRef)
	if !ok || !cancelled {
		t.Fatal("gateway hold not cancelled on checkout")
	}
}

type trackingGateway struct {
	deposit.Gateway
	authorized int32
	cancelled  int32
}

func (g *trackingGateway) AuthorizeHold(ctx context.Context, customerID string, amount int64) (string, error) {
	atomic.AddInt32(&g.authorized, 1)
	return g.Gateway.AuthorizeHold(ctx, customerID, amount)
}

func (g *trackingGateway) CancelHold(ctx context.Context, holdRef string) error {
	atomic.AddInt32(&g.cancelled, 1)
	return g.Gateway.CancelHold(ctx, holdRef)
}

// Two final submitters race: both see quorum, the orchestrator lets exactly
// one fire the transition, and exactly one deposit hold survives.
func TestConcurrentFinalSubmitters(t *testing.T) {
	gw := &trackingGateway{Gateway: deposit.NewStubGateway()}
	e := newGateEnv(t, gw)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := e.submit(t, "renter1", PhaseCheckin); err != nil {
			t.Errorf("renter submit: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := e.submit(t, "owner1", PhaseCheckin); err != nil {
			t.Errorf("owner submit: %v", err)
		}
	}()
	wg.Wait()

	if got := e.status(t); got != reservation.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", got)
	}
	active := atomic.LoadInt32(&gw.authorized) - atomic.LoadInt32(&gw.cancelled)
	if active != 1 {
		t.Fatalf("active holds = %d (authorized %d, cancelled %d)",
			active, gw.authorized, gw.cancelled)
	}
}
