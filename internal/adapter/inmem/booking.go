// Package inmem provides map-backed repositories with the same CAS
// semantics as the postgres adapters. Used by tests and by the
// single-node development mode.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/booking"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type BookingStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[uuid.UUID]*models.Booking)}
}

func (s *BookingStore) Create(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; ok {
		return types.ErrDuplicateRequest
	}
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s *BookingStore) Get(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, types.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

// UpdateStatus applies the transition under the store lock, which gives
// the same winner-takes-all behaviour as the SQL conditional update.
func (s *BookingStore) UpdateStatus(_ context.Context, id uuid.UUID, expected, next types.BookingStatus, upd booking.StatusUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return false, types.ErrBookingNotFound
	}
	if b.Status != expected {
		return false, nil
	}

	b.Status = next
	at := upd.At
	switch next {
	case types.StatusDriverAssigned:
		b.AssignedAt = &at
	case types.StatusPickedUp:
		b.PickedUpAt = &at
	case types.StatusCompleted:
		b.CompletedAt = &at
	case types.StatusCancelled:
		b.CancelledAt = &at
	}
	if upd.DriverID != nil {
		b.DriverID = upd.DriverID
	}
	if upd.FinalFare != nil {
		b.FinalFare = upd.FinalFare
	}
	if upd.CancellationReason != nil {
		b.CancellationReason = upd.CancellationReason
	}
	if upd.CancelledBy != nil {
		b.CancelledBy = upd.CancelledBy
	}
	return true, nil
}

func (s *BookingStore) ListActive(_ context.Context) ([]models.BookingOverview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BookingOverview
	for _, b := range s.bookings {
		if b.Status.IsTerminal() {
			continue
		}
		out = append(out, models.BookingOverview{
			ID:            b.ID,
			BookingNumber: b.BookingNumber,
			Status:        b.Status,
			RiderID:       b.RiderID,
			DriverID:      b.DriverID,
			PickupLabel:   b.Pickup.Label,
			DestLabel:     b.Destination.Label,
			CreatedAt:     b.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *BookingStore) CountForDate(_ context.Context, date time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	y, m, d := date.UTC().Date()
	var n int64
	for _, b := range s.bookings {
		by, bm, bd := b.CreatedAt.UTC().Date()
		if by == y && bm == m && bd == d {
			n++
		}
	}
	return n, nil
}

type CancellationStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.CancellationRecord
}

func NewCancellationStore() *CancellationStore {
	return &CancellationStore{records: make(map[uuid.UUID]*models.CancellationRecord)}
}

func (s *CancellationStore) Create(_ context.Context, rec *models.CancellationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.BookingID]; ok {
		return types.ErrDuplicateRequest
	}
	cp := *rec
	s.records[rec.BookingID] = &cp
	return nil
}

func (s *CancellationStore) Get(_ context.Context, bookingID uuid.UUID) (*models.CancellationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[bookingID]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}
