package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type eventKey struct {
	bookingID uuid.UUID
	eventType types.EventType
}

// EventStore is the in-memory outbox. Lifecycle events dedupe on
// (booking, event type); location events append freely.
type EventStore struct {
	mu     sync.Mutex
	nextID int64
	events []*models.BookingEvent
	seen   map[eventKey]bool
}

func NewEventStore() *EventStore {
	return &EventStore{seen: make(map[eventKey]bool)}
}

func (s *EventStore) Append(_ context.Context, ev *models.BookingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.EventType.IsLifecycleEvent() {
		k := eventKey{ev.BookingID, ev.EventType}
		if s.seen[k] {
			return nil
		}
		s.seen[k] = true
	}
	s.nextID++
	cp := *ev
	cp.ID = s.nextID
	ev.ID = s.nextID
	s.events = append(s.events, &cp)
	return nil
}

func (s *EventStore) FetchUnpublished(_ context.Context, limit int) ([]models.BookingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BookingEvent
	for _, ev := range s.events {
		if ev.PublishedAt != nil {
			continue
		}
		out = append(out, *ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *EventStore) MarkPublished(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, ev := range s.events {
		if want[ev.ID] && ev.PublishedAt == nil {
			at := now
			ev.PublishedAt = &at
		}
	}
	return nil
}

// All returns every stored event in append order. Test helper.
func (s *EventStore) All() []models.BookingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BookingEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, *ev)
	}
	return out
}
