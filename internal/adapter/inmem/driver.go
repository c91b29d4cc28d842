package inmem

import (
	"context"
	"sync"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type DriverStore struct {
	mu      sync.Mutex
	drivers map[uuid.UUID]*models.Driver
}

func NewDriverStore() *DriverStore {
	return &DriverStore{drivers: make(map[uuid.UUID]*models.Driver)}
}

func (s *DriverStore) Upsert(_ context.Context, d *models.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.drivers[d.ID] = &cp
	return nil
}

func (s *DriverStore) Get(_ context.Context, id uuid.UUID) (*models.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *DriverStore) SetStatus(_ context.Context, id uuid.UUID, status types.DriverStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return types.ErrDriverNotFound
	}
	d.Status = status
	return nil
}
