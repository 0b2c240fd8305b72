// README: Calendar store backed by PostgreSQL; the bucket row doubles as the lock.
package calendar

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Claim performs the availability check and the write in one guarded UPDATE
// so concurrent claims on the same vehicle serialize on the bucket row.
func (s *PGStore) Claim(ctx context.Context, vehicleID, reservationID string, days []string) (bool, error) {
	// Bucket is created lazily on first claim and never deleted.
	if _, err := s.db.Exec(ctx, `
		INSERT INTO vehicle_calendar (vehicle_id, dates)
		VALUES ($1, '{}'::jsonb)
		ON CONFLICT (vehicle_id) DO NOTHING`, vehicleID,
	); err != nil {
		return false, err
	}

	patch := make(map[string]string, len(days))
	for _, d := range days {
		patch[d] = reservationID
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return false, err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE vehicle_calendar
		SET dates = dates || $2::jsonb
		WHERE vehicle_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM jsonb_each_text(vehicle_calendar.dates) d
			WHERE d.key = ANY($3) AND d.value <> $4
		  )`,
		vehicleID, string(patchJSON), days, reservationID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Free(ctx context.Context, vehicleID, reservationID string, days []string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE vehicle_calendar
		SET dates = COALESCE((
			SELECT jsonb_object_agg(d.key, d.value)
			FROM jsonb_each_text(vehicle_calendar.dates) d
			WHERE NOT (d.key = ANY($2) AND d.value = $3)
		), '{}'::jsonb)
		WHERE vehicle_id = $1`,
		vehicleID, days, reservationID,
	)
	return err
}

func (s *PGStore) Booked(ctx context.Context, vehicleID string) (map[string]string, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT dates FROM vehicle_calendar WHERE vehicle_id = $1`, vehicleID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		// No bucket yet means no booked days.
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	dates := map[string]string{}
	if err := json.Unmarshal(raw, &dates); err != nil {
		return nil, err
	}
	return dates, nil
}
