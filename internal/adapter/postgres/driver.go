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

type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{db: db}
}

func (r *DriverRepo) Upsert(ctx context.Context, d *models.Driver) error {
	q := TxorDB(ctx, r.db)

	query := `INSERT INTO drivers (id, name, service_class, rating, status)
              VALUES ($1, $2, $3, $4, $5)
              ON CONFLICT (id) DO UPDATE
              SET name = EXCLUDED.name,
                  service_class = EXCLUDED.service_class,
                  rating = EXCLUDED.rating;`

	if _, err := q.Exec(ctx, query, d.ID, d.Name, d.ServiceClass, d.Rating, d.Status); err != nil {
		return fmt.Errorf("driver repo: Upsert: %w", err)
	}
	return nil
}

func (r *DriverRepo) Get(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT id, name, service_class, rating, status FROM drivers WHERE id = $1;`

	var d models.Driver
	err := q.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.ServiceClass, &d.Rating, &d.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrDriverNotFound
		}
		return nil, fmt.Errorf("driver repo: Get: %w", err)
	}
	return &d, nil
}

func (r *DriverRepo) SetStatus(ctx context.Context, id uuid.UUID, status types.DriverStatus) error {
	q := TxorDB(ctx, r.db)

	query := `UPDATE drivers SET status = $2 WHERE id = $1;`
	tag, err := q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("driver repo: SetStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrDriverNotFound
	}
	return nil
}
