// README: PostgreSQL store tests, gated on ROAM_TEST_DSN; the in-memory
// store covers the service tests, this file covers the SQL guards.
package reservation

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"roam/internal/modules/deposit"
)

func setupTestStore(t *testing.T) *PGStore {
	t.Helper()

	dsn := os.Getenv("ROAM_TEST_DSN")
	if dsn == "" {
		t.Skip("ROAM_TEST_DSN not set; skipping DB-backed store tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, `TRUNCATE TABLE reservations, vehicle_calendar,
		reservation_events, threads, messages, condition_reports, disputes`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewStore(db)
}

func seedReservation(t *testing.T, store *PGStore, id string, status Status) *Reservation {
	t.Helper()
	now := time.Now().UTC()
	r := &Reservation{
		ID: id, VehicleID: "veh1", RenterUserID: "renter1", OwnerUserID: "owner1",
		Status: status, StartDate: now, EndDate: now.AddDate(0, 0, 2),
		CreatedAt: now, UpdatedAt: now,
		TotalAmount: 200, CommissionAmount: 30, OwnerPayout: 170,
		DepositAmount: 500, Currency: "USD",
		PaymentStatus: PaymentPending, DepositStatus: deposit.StateNone,
	}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return r
}

func TestPGUpdateStatusGuardsOnVersion(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	r := seedReservation(t, store, "res-cas", StatusRequested)

	ok, err := store.UpdateStatus(ctx, r.ID, StatusRequested, StatusAcceptedPendingPayment, r.Version, Patch{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("matching guard must update")
	}

	// stale version loses
	ok, err = store.UpdateStatus(ctx, r.ID, StatusAcceptedPendingPayment, StatusCancelled, r.Version, Patch{})
	if err != nil {
		t.Fatalf("stale update: %v", err)
	}
	if ok {
		t.Fatal("stale version must not update")
	}

	// wrong from-status loses even with the right version
	latest, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	ok, err = store.UpdateStatus(ctx, r.ID, StatusRequested, StatusRejected, latest.Version, Patch{})
	if err != nil {
		t.Fatalf("wrong-status update: %v", err)
	}
	if ok {
		t.Fatal("wrong from-status must not update")
	}
}

func TestPGUpdateStatusAppliesPatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	r := seedReservation(t, store, "res-patch", StatusRequested)

	ps := PaymentInitialized
	now := time.Now().UTC()
	ok, err := store.UpdateStatus(ctx, r.ID, StatusRequested, StatusAcceptedPendingPayment, r.Version,
		Patch{PaymentStatus: &ps, AcceptedAt: &now})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}

	latest, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if latest.Status != StatusAcceptedPendingPayment || latest.Version != r.Version+1 {
		t.Fatalf("row after update: %s v%d", latest.Status, latest.Version)
	}
	if latest.PaymentStatus != PaymentInitialized || latest.AcceptedAt == nil {
		t.Fatalf("patch not applied: %+v", latest)
	}
}

func TestPGConcurrentTransitionSingleWinner(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	r := seedReservation(t, store, "res-race", StatusRequested)

	const contenders = 8
	var wg sync.WaitGroup
	results := make(chan bool, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.UpdateStatus(ctx, r.ID, StatusRequested, StatusAcceptedPendingPayment, r.Version, Patch{})
			if err != nil {
				t.Errorf("update: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	var stmts []string
	for _, stmt := range strings.Split(input, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
