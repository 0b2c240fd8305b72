// README: Condition report store backed by PostgreSQL; uniqueness on
// (reservation, phase, role) enforces one report per party per phase.
package inspection

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, r *Report) (bool, error) {
	required, err := json.Marshal(r.RequiredPhotos)
	if err != nil {
		return false, err
	}
	detail, err := json.Marshal(r.DetailPhotos)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO condition_reports (
			id, reservation_id, phase, role, required_photos, detail_photos,
			video_360_ref, submitted_by_user_id, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (reservation_id, phase, role) DO NOTHING`,
		r.ID, r.ReservationID, string(r.Phase), r.Role, required, detail,
		r.Video360Ref, r.SubmittedByUserID, r.CompletedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ListPhase(ctx context.Context, reservationID string, phase Phase) ([]*Report, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, reservation_id, phase, role, required_photos, detail_photos,
		       video_360_ref, submitted_by_user_id, completed_at
		FROM condition_reports
		WHERE reservation_id = $1 AND phase = $2`,
		reservationID, string(phase),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		var r Report
		var phaseStr string
		var required, detail []byte
		if err := rows.Scan(&r.ID, &r.ReservationID, &phaseStr, &r.Role, &required, &detail,
			&r.Video360Ref, &r.SubmittedByUserID, &r.CompletedAt); err != nil {
			return nil, err
		}
		r.Phase = Phase(phaseStr)
		if err := json.Unmarshal(required, &r.RequiredPhotos); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &r.DetailPhotos); err != nil {
				return nil, err
			}
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
