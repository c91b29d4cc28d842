package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type CancellationRepo struct {
	db *pgxpool.Pool
}

func NewCancellationRepo(db *pgxpool.Pool) *CancellationRepo {
	return &CancellationRepo{db: db}
}

func (r *CancellationRepo) Create(ctx context.Context, rec *models.CancellationRecord) error {
	q := TxorDB(ctx, r.db)

	query := `INSERT INTO cancellation_records (booking_id, actor, reason, state_at_cancellation, fee, created_at)
              VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := q.Exec(ctx, query, rec.BookingID, rec.Actor, rec.Reason, rec.StateAtCancellation, rec.Fee, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("cancellation repo: Create: %w", err)
	}
	return nil
}

func (r *CancellationRepo) Get(ctx context.Context, bookingID uuid.UUID) (*models.CancellationRecord, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT booking_id, actor, reason, state_at_cancellation, fee, created_at
              FROM cancellation_records
              WHERE booking_id = $1;`

	var rec models.CancellationRecord
	err := q.QueryRow(ctx, query, bookingID).Scan(
		&rec.BookingID, &rec.Actor, &rec.Reason, &rec.StateAtCancellation, &rec.Fee, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("cancellation repo: Get: %w", err)
	}
	return &rec, nil
}
