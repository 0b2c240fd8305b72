// README: Vehicle store backed by PostgreSQL (read-only for the booking core).
package vehicle

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Get(ctx context.Context, id string) (*Vehicle, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, id string) (*Vehicle, error) {
	var v Vehicle
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_user_id, daily_rate, deposit_amount, currency, cancellation_policy, blocked_dates
		FROM vehicles
		WHERE id = $1`, id,
	).Scan(&v.ID, &v.OwnerUserID, &v.DailyRate, &v.DepositAmount, &v.Currency, &v.CancellationPolicy, &v.BlockedDates)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
