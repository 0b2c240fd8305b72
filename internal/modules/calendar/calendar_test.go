// README: Date-lock tests: day enumeration, atomic claims, ownership on
// release (run with -race).
package calendar

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		start, end string
		want       []string
	}{
		{"2026-03-01", "2026-03-04", []string{"2026-03-01", "2026-03-02", "2026-03-03"}},
		{"2026-03-01", "2026-03-02", []string{"2026-03-01"}},
		{"2026-02-28", "2026-03-01", []string{"2026-02-28"}}, // month boundary
		{"2026-03-01", "2026-03-01", nil},
		{"2026-03-04", "2026-03-01", nil}, // inverted
	}
	for _, tc := range cases {
		got := DaysBetween(day(t, tc.start), day(t, tc.end))
		if len(got) != len(tc.want) {
			t.Fatalf("DaysBetween(%s, %s) = %v, want %v", tc.start, tc.end, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("DaysBetween(%s, %s)[%d] = %s, want %s", tc.start, tc.end, i, got[i], tc.want[i])
			}
		}
	}
}

func TestAcquireConflictOnOverlap(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemStore())

	if err := svc.Acquire(ctx, "v1", "r1", day(t, "2026-03-01"), day(t, "2026-03-05")); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	// overlaps on 03-04
	err := svc.Acquire(ctx, "v1", "r2", day(t, "2026-03-04"), day(t, "2026-03-07"))
	if err != ErrVehicleUnavailable {
		t.Fatalf("overlapping acquire: got %v, want ErrVehicleUnavailable", err)
	}
	// back-to-back is fine: end date is exclusive
	if err := svc.Acquire(ctx, "v1", "r3", day(t, "2026-03-05"), day(t, "2026-03-08")); err != nil {
		t.Fatalf("adjacent acquire: %v", err)
	}
	// a different vehicle is untouched
	if err := svc.Acquire(ctx, "v2", "r4", day(t, "2026-03-01"), day(t, "2026-03-05")); err != nil {
		t.Fatalf("other vehicle acquire: %v", err)
	}
}

func TestAcquireIdempotentForSameReservation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemStore())

	if err := svc.Acquire(ctx, "v1", "r1", day(t, "2026-03-01"), day(t, "2026-03-03")); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := svc.Acquire(ctx, "v1", "r1", day(t, "2026-03-01"), day(t, "2026-03-03")); err != nil {
		t.Fatalf("re-acquire by owner: %v", err)
	}
}

func TestReleaseOnlyOwnedDays(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemStore())

	if err := svc.Acquire(ctx, "v1", "r1", day(t, "2026-03-01"), day(t, "2026-03-03")); err != nil {
		t.Fatalf("acquire r1: %v", err)
	}
	if err := svc.Acquire(ctx, "v1", "r2", day(t, "2026-03-03"), day(t, "2026-03-05")); err != nil {
		t.Fatalf("acquire r2: %v", err)
	}

	// r2 tries to release the whole stretch; r1's days must survive
	if err := svc.Release(ctx, "v1", "r2", day(t, "2026-03-01"), day(t, "2026-03-05")); err != nil {
		t.Fatalf("release: %v", err)
	}
	booked, err := svc.Booked(ctx, "v1")
	if err != nil {
		t.Fatalf("booked: %v", err)
	}
	if booked["2026-03-01"] != "r1" || booked["2026-03-02"] != "r1" {
		t.Fatalf("r1 days lost: %v", booked)
	}
	if _, held := booked["2026-03-03"]; held {
		t.Fatalf("r2 day not released: %v", booked)
	}

	// release is idempotent
	if err := svc.Release(ctx, "v1", "r2", day(t, "2026-03-01"), day(t, "2026-03-05")); err != nil {
		t.Fatalf("repeat release: %v", err)
	}
}

func TestConcurrentAcquireExactlyOne(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemStore())

	const contenders = 16
	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- svc.Acquire(ctx, "v1", fmt.Sprintf("r%d", i),
				day(t, "2026-03-01"), day(t, "2026-03-05"))
		}(i)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
		} else if err != ErrVehicleUnavailable {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", success)
	}

	booked, err := svc.Booked(ctx, "v1")
	if err != nil {
		t.Fatalf("booked: %v", err)
	}
	owner := booked["2026-03-01"]
	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04"} {
		if booked[d] != owner {
			t.Fatalf("split ownership: %v", booked)
		}
	}
}
