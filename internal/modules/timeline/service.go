// README: Event store and chat projector. One immutable audit log, one O(1)
// current-actions view, never conflated.
package timeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("event not found")

type Store interface {
	// InsertEvent appends the event unless its (reservation, key) pair
	// already exists, in which case the stored row is returned with
	// created=false.
	InsertEvent(ctx context.Context, e *Event) (*Event, bool, error)
	LatestEventByType(ctx context.Context, reservationID, eventType string) (*Event, error)
	EnsureThread(ctx context.Context, reservationID string, now time.Time) error
	TouchThread(ctx context.Context, reservationID string, now time.Time) error
	// InsertMessage is a no-op returning false when the dedup key exists.
	InsertMessage(ctx context.Context, m *Message) (bool, error)
	// UpsertMessage replaces the message with the same dedup key in place.
	UpsertMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, reservationID string) ([]*Message, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type EmitCommand struct {
	ReservationID  string
	Type           string
	ActorUserID    string
	IdempotencyKey string // defaults to reservationID:type
	Payload        map[string]any
	// Status after the event, drives the pinned actions message.
	Status string
}

// Emit appends the event and projects it into the reservation thread. A
// duplicate idempotency key returns the stored event with zero extra
// effects.
func (s *Service) Emit(ctx context.Context, cmd EmitCommand) (*Event, bool, error) {
	key := cmd.IdempotencyKey
	if key == "" {
		key = cmd.ReservationID + ":" + cmd.Type
	}
	now := time.Now().UTC()
	e, created, err := s.store.InsertEvent(ctx, &Event{
		ID:             uuid.NewString(),
		ReservationID:  cmd.ReservationID,
		Type:           cmd.Type,
		ActorUserID:    cmd.ActorUserID,
		IdempotencyKey: key,
		Payload:        cmd.Payload,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		return e, false, nil
	}

	if err := s.store.EnsureThread(ctx, cmd.ReservationID, now); err != nil {
		return nil, false, err
	}
	text, audience := Compose(e.Type, e.Payload)
	if _, err := s.store.InsertMessage(ctx, &Message{
		ID:            uuid.NewString(),
		ReservationID: cmd.ReservationID,
		DedupKey:      "event:" + e.ID,
		Kind:          KindSystem,
		Text:          text,
		Audience:      audience,
		CreatedAt:     now,
	}); err != nil {
		return nil, false, err
	}
	if err := s.store.TouchThread(ctx, cmd.ReservationID, now); err != nil {
		return nil, false, err
	}
	if err := s.store.UpsertMessage(ctx, &Message{
		ID:            uuid.NewString(),
		ReservationID: cmd.ReservationID,
		DedupKey:      "actions:" + cmd.ReservationID,
		Kind:          KindActions,
		Text:          "Next steps",
		Actions:       ActionsForStatus(cmd.Status),
		Audience:      AudienceAll,
		CreatedAt:     now,
	}); err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Post appends a user chat message to the reservation thread.
func (s *Service) Post(ctx context.Context, reservationID, authorUserID, text string) (*Message, error) {
	now := time.Now().UTC()
	if err := s.store.EnsureThread(ctx, reservationID, now); err != nil {
		return nil, err
	}
	m := &Message{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		DedupKey:      "user:" + uuid.NewString(),
		Kind:          KindUser,
		AuthorUserID:  authorUserID,
		Text:          text,
		Audience:      AudienceAll,
		CreatedAt:     now,
	}
	if _, err := s.store.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, s.store.TouchThread(ctx, reservationID, now)
}

// Messages returns the reservation thread, actions message included.
func (s *Service) Messages(ctx context.Context, reservationID string) ([]*Message, error) {
	return s.store.ListMessages(ctx, reservationID)
}

// LatestEventByType returns the most recent event of the given type, or
// ErrNotFound.
func (s *Service) LatestEventByType(ctx context.Context, reservationID, eventType string) (*Event, error) {
	return s.store.LatestEventByType(ctx, reservationID, eventType)
}
