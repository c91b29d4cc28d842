package geo

import (
	"context"
	"testing"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

func TestHaversineDistance(t *testing.T) {
	// Nairobi CBD to Westlands, roughly 3.0-3.5 km.
	lat1, lon1 := -1.2864, 36.8172
	lat2, lon2 := -1.2647, 36.8028

	d := HaversineDistance(lat1, lon1, lat2, lon2)
	if d < 2.5 || d > 4.0 {
		t.Errorf("unexpected distance: %v km", d)
	}

	// Symmetric.
	rev := HaversineDistance(lat2, lon2, lat1, lon1)
	if diff := d - rev; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", d, rev)
	}

	// Zero for identical coordinates.
	if z := HaversineDistance(lat1, lon1, lat1, lon1); z != 0 {
		t.Errorf("expected zero distance, got %v", z)
	}
}

func TestEtaMonotonicInDistance(t *testing.T) {
	prev := 0
	for _, km := range []float64{0, 0.5, 1, 2, 5, 10, 25} {
		eta := EtaMinutes(km, types.ClassStandard)
		if eta < prev {
			t.Fatalf("ETA decreased: %d min at %v km after %d min", eta, km, prev)
		}
		prev = eta
	}
}

func TestEtaWholeMinutes(t *testing.T) {
	// 1 km at 30 km/h is 2 minutes exactly.
	if eta := EtaMinutes(1, types.ClassStandard); eta != 2 {
		t.Errorf("EtaMinutes(1, standard) = %d, want 2", eta)
	}
	// 1.1 km rounds up to 3.
	if eta := EtaMinutes(1.1, types.ClassStandard); eta != 3 {
		t.Errorf("EtaMinutes(1.1, standard) = %d, want 3", eta)
	}
}

func driverAt(idx *MemoryIndex, t *testing.T, lat, lon, rating float64, class types.ServiceClass) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := idx.Upsert(context.Background(), models.Driver{
		ID:           id,
		ServiceClass: class,
		Rating:       rating,
		Status:       types.DriverAvailable,
	}, models.DriverLocation{
		DriverID:   id,
		Latitude:   lat,
		Longitude:  lon,
		Available:  true,
		ReportedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return id
}

func TestNearbyOrdering(t *testing.T) {
	idx := NewMemoryIndex(30 * time.Second)
	origin := models.Location{Latitude: -1.2864, Longitude: 36.8172}

	// Three candidates at increasing distance, equal rating.
	far := driverAt(idx, t, -1.2864, 36.8172+0.045, 4.5, types.ClassStandard)   // ~5.0 km
	mid := driverAt(idx, t, -1.2864, 36.8172+0.0306, 4.5, types.ClassStandard)  // ~3.4 km
	near := driverAt(idx, t, -1.2864, 36.8172+0.0108, 4.5, types.ClassStandard) // ~1.2 km

	got, err := idx.Nearby(context.Background(), origin, Query{Class: types.ClassStandard, RadiusKm: 6, Limit: 10})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].Driver.ID != near || got[1].Driver.ID != mid || got[2].Driver.ID != far {
		t.Errorf("wrong order: %v km, %v km, %v km", got[0].DistanceKm, got[1].DistanceKm, got[2].DistanceKm)
	}
}

func TestNearbyRatingTieBreak(t *testing.T) {
	idx := NewMemoryIndex(30 * time.Second)
	origin := models.Location{Latitude: 0, Longitude: 0}

	lowRated := driverAt(idx, t, 0.001, 0.001, 4.0, types.ClassStandard)
	highRated := driverAt(idx, t, 0.001, 0.001, 5.0, types.ClassStandard)

	got, err := idx.Nearby(context.Background(), origin, Query{Class: types.ClassStandard, RadiusKm: 3, Limit: 10})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Driver.ID != highRated {
		t.Errorf("expected higher-rated driver first, got %v then %v", got[0].Driver.ID, lowRated)
	}
}

func TestNearbyFiltersClassAvailabilityRadius(t *testing.T) {
	idx := NewMemoryIndex(30 * time.Second)
	origin := models.Location{Latitude: 0, Longitude: 0}
	ctx := context.Background()

	match := driverAt(idx, t, 0.002, 0, 4.8, types.ClassStandard)
	driverAt(idx, t, 0.002, 0, 4.8, types.ClassExpress) // wrong class
	busy := driverAt(idx, t, 0.002, 0, 4.8, types.ClassStandard)
	driverAt(idx, t, 0.5, 0.5, 4.8, types.ClassStandard) // outside radius

	if err := idx.SetAvailability(ctx, busy, false); err != nil {
		t.Fatalf("set availability: %v", err)
	}

	got, err := idx.Nearby(ctx, origin, Query{Class: types.ClassStandard, RadiusKm: 3, Limit: 10})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 1 || got[0].Driver.ID != match {
		t.Errorf("expected only the available standard driver in radius, got %d candidates", len(got))
	}
}

func TestNearbySkipsStalePositions(t *testing.T) {
	idx := NewMemoryIndex(30 * time.Second)
	ctx := context.Background()

	id := uuid.New()
	if err := idx.Upsert(ctx, models.Driver{ID: id, ServiceClass: types.ClassStandard, Rating: 5}, models.DriverLocation{
		DriverID:   id,
		Latitude:   0.001,
		Longitude:  0.001,
		Available:  true,
		ReportedAt: time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := idx.Nearby(ctx, models.Location{}, Query{Class: types.ClassStandard, RadiusKm: 3, Limit: 10})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected stale driver to be excluded, got %d candidates", len(got))
	}

	if _, err := idx.Location(ctx, id); err != types.ErrStaleLocation {
		t.Errorf("expected ErrStaleLocation, got %v", err)
	}
}

// Cells narrow east-west away from the equator, so a radius that fits the
// neighbour walk at 0 degrees can reach past it at 60 degrees north. A
// driver ~2.6 km west sits two cells away there and must still be found.
func TestNearbyHighLatitudeRadius(t *testing.T) {
	idx := NewMemoryIndex(30 * time.Second)
	origin := models.Location{Latitude: 60.0, Longitude: 29.9717}

	west := driverAt(idx, t, 60.0, origin.Longitude-0.0467, 4.5, types.ClassStandard) // ~2.6 km
	east := driverAt(idx, t, 60.0, origin.Longitude+0.0500, 4.5, types.ClassStandard) // ~2.8 km

	got, err := idx.Nearby(context.Background(), origin, Query{Class: types.ClassStandard, RadiusKm: 3, Limit: 10})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both high-latitude drivers in radius, got %d candidates", len(got))
	}
	if got[0].Driver.ID != west || got[1].Driver.ID != east {
		t.Errorf("wrong order: %v km then %v km", got[0].DistanceKm, got[1].DistanceKm)
	}
}

func TestNearbyWideRadiusFallsBackToScan(t *testing.T) {
	idx := NewMemoryIndex(30 * time.Second)
	origin := models.Location{Latitude: 0, Longitude: 0}

	// ~11 km east: outside the neighbour-cell walk but inside a widened radius.
	id := driverAt(idx, t, 0, 0.1, 4.5, types.ClassStandard)

	got, err := idx.Nearby(context.Background(), origin, Query{Class: types.ClassStandard, RadiusKm: 12, Limit: 10})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 1 || got[0].Driver.ID != id {
		t.Fatalf("expected the distant driver under a widened radius, got %d candidates", len(got))
	}
}
