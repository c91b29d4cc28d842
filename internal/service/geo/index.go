package geo

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// geohashPrecision of 5 gives cells roughly 4.9 km on a side at the
// equator; a centre cell plus its eight neighbours covers any radius up
// to one cell width.
const geohashPrecision = 5

// cellWidthEquatorKm is the east-west extent of a precision-5 cell at the
// equator. Cell height is constant; width shrinks with cos(latitude).
const cellWidthEquatorKm = 4.9

// cellWalkLimitKm is the largest radius the 3x3 cell walk can answer at
// the given latitude; wider queries scan all drivers.
func cellWalkLimitKm(lat float64) float64 {
	return cellWidthEquatorKm * math.Cos(lat*math.Pi/180)
}

// Query narrows a Nearby search.
type Query struct {
	Class    types.ServiceClass
	RadiusKm float64
	Limit    int
}

// Index answers "who is near point P matching constraints C" and tracks
// driver availability. Queries are read-only and may run fully in parallel.
type Index interface {
	Upsert(ctx context.Context, driver models.Driver, loc models.DriverLocation) error
	SetAvailability(ctx context.Context, driverID uuid.UUID, available bool) error
	Remove(ctx context.Context, driverID uuid.UUID) error
	Nearby(ctx context.Context, origin models.Location, q Query) ([]models.Candidate, error)
	Location(ctx context.Context, driverID uuid.UUID) (models.DriverLocation, error)
}

type entry struct {
	driver models.Driver
	loc    models.DriverLocation
	cell   string
}

// MemoryIndex is the in-process Index: drivers bucketed by geohash cell so
// a proximity search touches the centre cell and its eight neighbours
// instead of every driver.
type MemoryIndex struct {
	mu        sync.RWMutex
	byDriver  map[uuid.UUID]*entry
	cells     map[string]map[uuid.UUID]*entry
	freshness time.Duration
	now       func() time.Time
}

func NewMemoryIndex(freshness time.Duration) *MemoryIndex {
	return &MemoryIndex{
		byDriver:  make(map[uuid.UUID]*entry),
		cells:     make(map[string]map[uuid.UUID]*entry),
		freshness: freshness,
		now:       time.Now,
	}
}

func (m *MemoryIndex) Upsert(ctx context.Context, driver models.Driver, loc models.DriverLocation) error {
	cell := geohash.EncodeWithPrecision(loc.Latitude, loc.Longitude, geohashPrecision)

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.byDriver[driver.ID]; ok && old.cell != cell {
		delete(m.cells[old.cell], driver.ID)
		if len(m.cells[old.cell]) == 0 {
			delete(m.cells, old.cell)
		}
	}

	e := &entry{driver: driver, loc: loc, cell: cell}
	m.byDriver[driver.ID] = e
	if m.cells[cell] == nil {
		m.cells[cell] = make(map[uuid.UUID]*entry)
	}
	m.cells[cell][driver.ID] = e

	return nil
}

func (m *MemoryIndex) SetAvailability(ctx context.Context, driverID uuid.UUID, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byDriver[driverID]
	if !ok {
		return types.ErrDriverNotFound
	}
	e.loc.Available = available
	return nil
}

func (m *MemoryIndex) Remove(ctx context.Context, driverID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byDriver[driverID]
	if !ok {
		return nil
	}
	delete(m.byDriver, driverID)
	delete(m.cells[e.cell], driverID)
	if len(m.cells[e.cell]) == 0 {
		delete(m.cells, e.cell)
	}
	return nil
}

// Nearby returns candidates within the radius matching the service class,
// available and fresh, sorted by distance ascending with rating descending
// as the tie-break.
func (m *MemoryIndex) Nearby(ctx context.Context, origin models.Location, q Query) ([]models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pool []*entry
	if q.RadiusKm <= cellWalkLimitKm(origin.Latitude) {
		pool = m.cellWalk(origin)
	} else {
		pool = make([]*entry, 0, len(m.byDriver))
		for _, e := range m.byDriver {
			pool = append(pool, e)
		}
	}

	cutoff := m.now().Add(-m.freshness)
	out := make([]models.Candidate, 0, len(pool))
	for _, e := range pool {
		if !e.loc.Available {
			continue
		}
		if q.Class != "" && e.driver.ServiceClass != q.Class {
			continue
		}
		if e.loc.ReportedAt.Before(cutoff) {
			continue
		}
		dist := HaversineDistance(origin.Latitude, origin.Longitude, e.loc.Latitude, e.loc.Longitude)
		if dist > q.RadiusKm {
			continue
		}
		out = append(out, models.Candidate{
			Driver:     e.driver,
			Location:   e.loc,
			DistanceKm: dist,
			EtaMinutes: EtaMinutes(dist, e.driver.ServiceClass),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Driver.Rating > out[j].Driver.Rating
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryIndex) Location(ctx context.Context, driverID uuid.UUID) (models.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.byDriver[driverID]
	if !ok {
		return models.DriverLocation{}, types.ErrDriverNotFound
	}
	loc := e.loc
	if m.now().Sub(loc.ReportedAt) > m.freshness {
		return loc, types.ErrStaleLocation
	}
	return loc, nil
}

// cellWalk collects drivers from the origin's cell and its eight
// neighbours. Caller holds the read lock.
func (m *MemoryIndex) cellWalk(origin models.Location) []*entry {
	center := geohash.EncodeWithPrecision(origin.Latitude, origin.Longitude, geohashPrecision)
	cells := append(geohash.Neighbors(center), center)

	var pool []*entry
	for _, cell := range cells {
		for _, e := range m.cells[cell] {
			pool = append(pool, e)
		}
	}
	return pool
}
