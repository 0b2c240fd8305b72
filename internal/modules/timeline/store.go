// README: Timeline store backed by PostgreSQL. Events insert-only with a
// unique (reservation, key) constraint; the actions message is an upsert row.
package timeline

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

func (s *PGStore) InsertEvent(ctx context.Context, e *Event) (*Event, bool, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, false, err
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO reservation_events (
			id, reservation_id, type, actor_user_id, idempotency_key, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (reservation_id, idempotency_key) DO NOTHING`,
		e.ID, e.ReservationID, e.Type, e.ActorUserID, e.IdempotencyKey, payload, e.CreatedAt,
	)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 1 {
		return e, true, nil
	}
	// Conflict: return the existing row rather than raising.
	existing, err := s.scanEvent(s.db.QueryRow(ctx, `
		SELECT id, reservation_id, type, actor_user_id, idempotency_key, payload, created_at
		FROM reservation_events
		WHERE reservation_id = $1 AND idempotency_key = $2`,
		e.ReservationID, e.IdempotencyKey,
	))
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PGStore) LatestEventByType(ctx context.Context, reservationID, eventType string) (*Event, error) {
	e, err := s.scanEvent(s.db.QueryRow(ctx, `
		SELECT id, reservation_id, type, actor_user_id, idempotency_key, payload, created_at
		FROM reservation_events
		WHERE reservation_id = $1 AND type = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		reservationID, eventType,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *PGStore) scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	var payload []byte
	if err := row.Scan(&e.ID, &e.ReservationID, &e.Type, &e.ActorUserID, &e.IdempotencyKey, &payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

func (s *PGStore) EnsureThread(ctx context.Context, reservationID string, now time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO threads (reservation_id, created_at, last_activity_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (reservation_id) DO NOTHING`,
		reservationID, now,
	)
	return err
}

func (s *PGStore) TouchThread(ctx context.Context, reservationID string, now time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE threads SET last_activity_at = $2 WHERE reservation_id = $1`,
		reservationID, now,
	)
	return err
}

func (s *PGStore) InsertMessage(ctx context.Context, m *Message) (bool, error) {
	actions, err := json.Marshal(m.Actions)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO messages (
			id, reservation_id, dedup_key, kind, author_user_id, text, actions, audience, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (reservation_id, dedup_key) DO NOTHING`,
		m.ID, m.ReservationID, m.DedupKey, m.Kind, m.AuthorUserID, m.Text, actions, string(m.Audience), m.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) UpsertMessage(ctx context.Context, m *Message) error {
	actions, err := json.Marshal(m.Actions)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO messages (
			id, reservation_id, dedup_key, kind, author_user_id, text, actions, audience, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (reservation_id, dedup_key) DO UPDATE
		SET text = EXCLUDED.text,
		    actions = EXCLUDED.actions,
		    created_at = EXCLUDED.created_at`,
		m.ID, m.ReservationID, m.DedupKey, m.Kind, m.AuthorUserID, m.Text, actions, string(m.Audience), m.CreatedAt,
	)
	return err
}

func (s *PGStore) ListMessages(ctx context.Context, reservationID string) ([]*Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, reservation_id, dedup_key, kind, author_user_id, text, actions, audience, created_at
		FROM messages
		WHERE reservation_id = $1
		ORDER BY created_at ASC`,
		reservationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		var actions []byte
		var audience string
		if err := rows.Scan(&m.ID, &m.ReservationID, &m.DedupKey, &m.Kind, &m.AuthorUserID, &m.Text, &actions, &audience, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(actions) > 0 {
			if err := json.Unmarshal(actions, &m.Actions); err != nil {
				return nil, err
			}
		}
		m.Audience = Audience(audience)
		out = append(out, &m)
	}
	return out, rows.Err()
}
