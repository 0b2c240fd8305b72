// README: Dispute store backed by PostgreSQL. A partial unique index on
// reservation_id keeps at most one open dispute per reservation.
package dispute

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const disputeColumns = `
	id, reservation_id, vehicle_id, opened_by_user_id, opened_by_role,
	reason, description, photo_refs, status, resolution, retained_amount,
	admin_note, created_at, resolved_at`

func (s *PGStore) Insert(ctx context.Context, d *Dispute) (bool, error) {
	photos, err := json.Marshal(d.PhotoRefs)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO disputes (
			id, reservation_id, vehicle_id, opened_by_user_id, opened_by_role,
			reason, description, photo_refs, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (reservation_id) WHERE status = 'open' DO NOTHING`,
		d.ID, d.ReservationID, d.VehicleID, d.OpenedByUserID, d.OpenedByRole,
		d.Reason, d.Description, photos, string(d.Status), d.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Dispute, error) {
	row := s.db.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	d, err := scanDispute(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *PGStore) MarkResolved(ctx context.Context, id string, resolution Resolution, retained int64, note string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE disputes
		SET status = 'resolved', resolution = $2, retained_amount = $3,
		    admin_note = NULLIF($4, ''), resolved_at = $5
		WHERE id = $1 AND status = 'open'`,
		id, string(resolution), retained, note, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ListByReservation(ctx context.Context, reservationID string) ([]*Dispute, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+disputeColumns+`
		FROM disputes
		WHERE reservation_id = $1
		ORDER BY created_at`,
		reservationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDispute(row pgx.Row) (*Dispute, error) {
	var d Dispute
	var photos []byte
	var status string
	var resolution *string
	if err := row.Scan(&d.ID, &d.ReservationID, &d.VehicleID, &d.OpenedByUserID,
		&d.OpenedByRole, &d.Reason, &d.Description, &photos, &status,
		&resolution, &d.RetainedAmount, &d.AdminNote, &d.CreatedAt,
		&d.ResolvedAt); err != nil {
		return nil, err
	}
	d.Status = Status(status)
	if resolution != nil {
		r := Resolution(*resolution)
		d.Resolution = &r
	}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &d.PhotoRefs); err != nil {
			return nil, err
		}
	}
	return &d, nil
}
