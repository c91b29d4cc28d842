package dispatch

import (
	"context"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/geo"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

/*=================Geo Index======================*/

type GeoIndex interface {
	Nearby(ctx context.Context, origin models.Location, q geo.Query) ([]models.Candidate, error)
	Location(ctx context.Context, driverID uuid.UUID) (models.DriverLocation, error)
}

/*=================Booking Lifecycle==============*/

// Lifecycle is the slice of the booking service the matcher drives.
type Lifecycle interface {
	// Assign performs confirmed -> driver_assigned for the booking.
	Assign(ctx context.Context, bookingID, driverID uuid.UUID) (*models.Booking, error)
	// MarkNoDriver terminates the booking after search exhaustion.
	MarkNoDriver(ctx context.Context, bookingID uuid.UUID) error
}
