// README: State machine table tests; no fixtures, no database.
package reservation

import "testing"

// TestCanTransition walks every status pair against the lifecycle table.
func TestCanTransition(t *testing.T) {
	all := []Status{
		StatusRequested, StatusAcceptedPendingPayment, StatusPickupPending,
		StatusInProgress, StatusDropoffPending, StatusCompleted,
		StatusRejected, StatusCancelled, StatusDisputed,
	}
	allowed := map[Status]map[Status]bool{
		StatusRequested:              {StatusAcceptedPendingPayment: true, StatusRejected: true, StatusCancelled: true},
		StatusAcceptedPendingPayment: {StatusPickupPending: true, StatusCancelled: true},
		StatusPickupPending:          {StatusInProgress: true, StatusCancelled: true},
		StatusInProgress:             {StatusDropoffPending: true},
		StatusDropoffPending:         {StatusCompleted: true, StatusDisputed: true},
		StatusCompleted:              {StatusDisputed: true},
		StatusDisputed:               {StatusCompleted: true},
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := map[Status]bool{
		StatusCompleted: true,
		StatusRejected:  true,
		StatusCancelled: true,
	}
	for _, s := range []Status{
		StatusRequested, StatusAcceptedPendingPayment, StatusPickupPending,
		StatusInProgress, StatusDropoffPending, StatusCompleted,
		StatusRejected, StatusCancelled, StatusDisputed,
	} {
		if s.Terminal() != terminal[s] {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), terminal[s])
		}
	}
	// disputed is NOT terminal: it resolves back to completed
	if StatusDisputed.Terminal() {
		t.Error("disputed must not be terminal")
	}
}

func TestRoleOf(t *testing.T) {
	r := &Reservation{OwnerUserID: "owner", RenterUserID: "renter"}
	if role, err := RoleOf(r, "owner"); err != nil || role != RoleOwner {
		t.Fatalf("owner: %v %v", role, err)
	}
	if role, err := RoleOf(r, "renter"); err != nil || role != RoleRenter {
		t.Fatalf("renter: %v %v", role, err)
	}
	if _, err := RoleOf(r, "stranger"); err != ErrForbidden {
		t.Fatalf("stranger: %v, want ErrForbidden", err)
	}
}

func TestPatchAppliedTo(t *testing.T) {
	held := "hold_1"
	ps := PaymentCaptured
	r := &Reservation{PaymentStatus: PaymentCaptured, DepositHoldRef: &held}

	if !(Patch{}).AppliedTo(r) {
		t.Fatal("empty patch must always read as applied")
	}
	if !(Patch{PaymentStatus: &ps, DepositHoldRef: &held}).AppliedTo(r) {
		t.Fatal("matching patch must read as applied")
	}
	other := "hold_2"
	if (Patch{DepositHoldRef: &other}).AppliedTo(r) {
		t.Fatal("different hold ref must not read as applied")
	}
}
