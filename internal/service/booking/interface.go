package booking

import (
	"context"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// StatusUpdate carries the fields a compare-and-set transition writes
// alongside the new status. Repositories stamp per-status timestamps
// from At; nil pointers leave columns untouched.
type StatusUpdate struct {
	DriverID           *uuid.UUID
	FinalFare          *float64
	CancellationReason *string
	CancelledBy        *types.Actor
	At                 time.Time
}

type BookingRepo interface {
	Create(ctx context.Context, b *models.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	// UpdateStatus performs a compare-and-set: the row changes only if
	// its status still equals expected. Returns false on a CAS miss.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next types.BookingStatus, upd StatusUpdate) (bool, error)
	ListActive(ctx context.Context) ([]models.BookingOverview, error)
	CountForDate(ctx context.Context, date time.Time) (int64, error)
}

type CancellationRepo interface {
	Create(ctx context.Context, rec *models.CancellationRecord) error
	Get(ctx context.Context, bookingID uuid.UUID) (*models.CancellationRecord, error)
}

// EventRepo is the transactional outbox. Append is idempotent on
// (booking_id, event_type) so a retried transition records one event.
type EventRepo interface {
	Append(ctx context.Context, ev *models.BookingEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]models.BookingEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Dispatcher starts a driver search for a confirmed booking.
type Dispatcher interface {
	Dispatch(ctx context.Context, b *models.Booking) error
}

// ReservationReleaser frees a driver hold once a booking leaves the
// states that needed it.
type ReservationReleaser interface {
	Release(driverID uuid.UUID)
}
