package location

import (
	"context"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// Archiver persists the raw location stream for offline analytics.
// Failures are logged, never surfaced to the reporting driver.
type Archiver interface {
	Archive(ctx context.Context, loc models.DriverLocation) error
}

// Broadcaster fans a location event out to the subscribers of one booking.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev models.OutboundEvent)
}

// AssignmentResolver answers which booking, if any, currently holds a
// driver. Backed by the dispatch reservation registry.
type AssignmentResolver interface {
	Holder(driverID uuid.UUID) (uuid.UUID, bool)
}

type DriverRepo interface {
	Upsert(ctx context.Context, d *models.Driver) error
	Get(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) error
}

// BookingReader is the read-only slice of the booking service the
// location fanout needs.
type BookingReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Booking, error)
}
