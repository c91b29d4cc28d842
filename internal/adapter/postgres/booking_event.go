package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
)

// BookingEventRepo is the audit trail plus relay outbox. The unique
// index on (booking_id, event_type) for lifecycle events makes Append
// idempotent: a retried transition records nothing new.
type BookingEventRepo struct {
	db *pgxpool.Pool
}

func NewBookingEventRepo(db *pgxpool.Pool) *BookingEventRepo {
	return &BookingEventRepo{db: db}
}

func (r *BookingEventRepo) Append(ctx context.Context, ev *models.BookingEvent) error {
	q := TxorDB(ctx, r.db)

	query := `INSERT INTO booking_events (booking_id, event_type, payload, occurred_at)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (booking_id, event_type) DO NOTHING
              RETURNING id;`

	err := q.QueryRow(ctx, query, ev.BookingID, ev.EventType, ev.Payload, ev.OccurredAt).Scan(&ev.ID)
	if err != nil {
		// No row returned means the conflict clause swallowed a duplicate.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("booking event repo: Append: %w", err)
	}
	return nil
}

func (r *BookingEventRepo) FetchUnpublished(ctx context.Context, limit int) ([]models.BookingEvent, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT id, booking_id, event_type, payload, occurred_at, published_at
              FROM booking_events
              WHERE published_at IS NULL
              ORDER BY id
              LIMIT $1;`

	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("booking event repo: FetchUnpublished: %w", err)
	}
	defer rows.Close()

	var out []models.BookingEvent
	for rows.Next() {
		var ev models.BookingEvent
		if err := rows.Scan(&ev.ID, &ev.BookingID, &ev.EventType, &ev.Payload, &ev.OccurredAt, &ev.PublishedAt); err != nil {
			return nil, fmt.Errorf("booking event repo: FetchUnpublished scan: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking event repo: FetchUnpublished rows: %w", err)
	}
	return out, nil
}

func (r *BookingEventRepo) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	q := TxorDB(ctx, r.db)

	query := `UPDATE booking_events SET published_at = now() WHERE id = ANY($1) AND published_at IS NULL;`
	if _, err := q.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("booking event repo: MarkPublished: %w", err)
	}
	return nil
}
