// README: In-process timeline store for single-node deployments and tests.
package timeline

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemStore struct {
	mu       sync.Mutex
	events   []*Event
	eventKey map[string]*Event // reservationID+"\x00"+idempotencyKey
	threads  map[string]*Thread
	messages map[string]*Message // reservationID+"\x00"+dedupKey
}

func NewMemStore() *MemStore {
	return &MemStore{
		eventKey: map[string]*Event{},
		threads:  map[string]*Thread{},
		messages: map[string]*Message{},
	}
}

func memKey(reservationID, key string) string {
	return reservationID + "\x00" + key
}

func (s *MemStore) InsertEvent(ctx context.Context, e *Event) (*Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(e.ReservationID, e.IdempotencyKey)
	if existing, ok := s.eventKey[k]; ok {
		return existing, false, nil
	}
	cp := *e
	s.eventKey[k] = &cp
	s.events = append(s.events, &cp)
	return &cp, true, nil
}

func (s *MemStore) LatestEventByType(ctx context.Context, reservationID, eventType string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].ReservationID == reservationID && s.events[i].Type == eventType {
			cp := *s.events[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) EnsureThread(ctx context.Context, reservationID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[reservationID]; !ok {
		s.threads[reservationID] = &Thread{ReservationID: reservationID, CreatedAt: now, LastActivityAt: now}
	}
	return nil
}

func (s *MemStore) TouchThread(ctx context.Context, reservationID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.threads[reservationID]; ok {
		t.LastActivityAt = now
	}
	return nil
}

func (s *MemStore) InsertMessage(ctx context.Context, m *Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(m.ReservationID, m.DedupKey)
	if _, ok := s.messages[k]; ok {
		return false, nil
	}
	cp := *m
	s.messages[k] = &cp
	return true, nil
}

func (s *MemStore) UpsertMessage(ctx context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages[memKey(m.ReservationID, m.DedupKey)] = &cp
	return nil
}

func (s *MemStore) ListMessages(ctx context.Context, reservationID string) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Message
	for _, m := range s.messages {
		if m.ReservationID == reservationID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
