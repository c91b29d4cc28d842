package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/booking"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type BookingRepo struct {
	db *pgxpool.Pool
}

func NewBookingRepo(db *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, b *models.Booking) error {
	q := TxorDB(ctx, r.db)

	query := `INSERT INTO bookings (id, booking_number, rider_id, service_class, status,
                       pickup_latitude, pickup_longitude, pickup_label,
                       dest_latitude, dest_longitude, dest_label,
                       estimated_fare, estimated_distance_km, estimated_duration_min,
                       surge_multiplier, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);`

	_, err := q.Exec(ctx, query,
		b.ID, b.BookingNumber, b.RiderID, b.ServiceClass, b.Status,
		b.Pickup.Latitude, b.Pickup.Longitude, b.Pickup.Label,
		b.Destination.Latitude, b.Destination.Longitude, b.Destination.Label,
		b.EstimatedFare, b.EstimatedDistanceKm, b.EstimatedDurationMin,
		b.SurgeMultiplier, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking repo: Create: %w", err)
	}
	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT id, booking_number, rider_id, driver_id, service_class, status,
                     pickup_latitude, pickup_longitude, pickup_label,
                     dest_latitude, dest_longitude, dest_label,
                     estimated_fare, final_fare, estimated_distance_km, estimated_duration_min,
                     surge_multiplier, cancellation_reason, cancelled_by,
                     created_at, assigned_at, picked_up_at, completed_at, cancelled_at
              FROM bookings
              WHERE id = $1;`

	var b models.Booking
	err := q.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.BookingNumber, &b.RiderID, &b.DriverID, &b.ServiceClass, &b.Status,
		&b.Pickup.Latitude, &b.Pickup.Longitude, &b.Pickup.Label,
		&b.Destination.Latitude, &b.Destination.Longitude, &b.Destination.Label,
		&b.EstimatedFare, &b.FinalFare, &b.EstimatedDistanceKm, &b.EstimatedDurationMin,
		&b.SurgeMultiplier, &b.CancellationReason, &b.CancelledBy,
		&b.CreatedAt, &b.AssignedAt, &b.PickedUpAt, &b.CompletedAt, &b.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrBookingNotFound
		}
		return nil, fmt.Errorf("booking repo: Get: %w", err)
	}
	return &b, nil
}

// UpdateStatus is the concurrency gate for the whole lifecycle: the row
// changes only when its status still matches the caller's expectation,
// so two racing transitions resolve to one winner inside the database.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next types.BookingStatus, upd booking.StatusUpdate) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `UPDATE bookings
              SET status = $3,
                  driver_id = COALESCE($4, driver_id),
                  final_fare = COALESCE($5, final_fare),
                  cancellation_reason = COALESCE($6, cancellation_reason),
                  cancelled_by = COALESCE($7, cancelled_by),
                  assigned_at  = CASE WHEN $3 = 'DRIVER_ASSIGNED' THEN $8 ELSE assigned_at END,
                  picked_up_at = CASE WHEN $3 = 'PICKED_UP'       THEN $8 ELSE picked_up_at END,
                  completed_at = CASE WHEN $3 = 'COMPLETED'       THEN $8 ELSE completed_at END,
                  cancelled_at = CASE WHEN $3 = 'CANCELLED'       THEN $8 ELSE cancelled_at END
              WHERE id = $1 AND status = $2;`

	tag, err := q.Exec(ctx, query, id, expected, next,
		upd.DriverID, upd.FinalFare, upd.CancellationReason, upd.CancelledBy, upd.At)
	if err != nil {
		return false, fmt.Errorf("booking repo: UpdateStatus: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BookingRepo) ListActive(ctx context.Context) ([]models.BookingOverview, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT id, booking_number, status, rider_id, driver_id, pickup_label, dest_label, created_at
              FROM bookings
              WHERE status NOT IN ('COMPLETED', 'CANCELLED', 'NO_DRIVER_AVAILABLE', 'NO_SHOW')
              ORDER BY created_at;`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("booking repo: ListActive: %w", err)
	}
	defer rows.Close()

	var out []models.BookingOverview
	for rows.Next() {
		var o models.BookingOverview
		if err := rows.Scan(&o.ID, &o.BookingNumber, &o.Status, &o.RiderID, &o.DriverID, &o.PickupLabel, &o.DestLabel, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("booking repo: ListActive scan: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking repo: ListActive rows: %w", err)
	}
	return out, nil
}

func (r *BookingRepo) CountForDate(ctx context.Context, date time.Time) (int64, error) {
	q := TxorDB(ctx, r.db)

	var count int64
	query := `SELECT COUNT(*) FROM bookings WHERE DATE(created_at) = $1;`
	if err := q.QueryRow(ctx, query, date.UTC().Format("2006-01-02")).Scan(&count); err != nil {
		return 0, fmt.Errorf("booking repo: CountForDate: %w", err)
	}
	return count, nil
}
