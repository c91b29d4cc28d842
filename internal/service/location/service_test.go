package location_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/inmem"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/geo"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/location"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type captureArchiver struct {
	mu   sync.Mutex
	locs []models.DriverLocation
}

func (a *captureArchiver) Archive(_ context.Context, loc models.DriverLocation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locs = append(a.locs, loc)
	return nil
}

func (a *captureArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locs)
}

type captureBroadcaster struct {
	mu     sync.Mutex
	events []models.OutboundEvent
}

func (b *captureBroadcaster) Broadcast(_ context.Context, ev models.OutboundEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *captureBroadcaster) all() []models.OutboundEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.OutboundEvent(nil), b.events...)
}

type staticResolver map[uuid.UUID]uuid.UUID

func (r staticResolver) Holder(driverID uuid.UUID) (uuid.UUID, bool) {
	id, ok := r[driverID]
	return id, ok
}

type env struct {
	svc      *location.Service
	index    *geo.MemoryIndex
	drivers  *inmem.DriverStore
	bookings *inmem.BookingStore
	archiver *captureArchiver
	fanout   *captureBroadcaster
	resolver staticResolver
}

const freshness = 30 * time.Second

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		index:    geo.NewMemoryIndex(freshness),
		drivers:  inmem.NewDriverStore(),
		bookings: inmem.NewBookingStore(),
		archiver: &captureArchiver{},
		fanout:   &captureBroadcaster{},
		resolver: staticResolver{},
	}
	e.svc = location.NewService(
		e.index, e.drivers, e.bookings,
		e.archiver, e.fanout, e.resolver,
		freshness,
		logger.InitLogger("location-test", "error"),
	)
	return e
}

func (e *env) addDriver(t *testing.T, status types.DriverStatus) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := e.drivers.Upsert(context.Background(), &models.Driver{
		ID:           id,
		Name:         "Test Driver",
		ServiceClass: types.ClassStandard,
		Rating:       4.7,
		Status:       status,
	})
	if err != nil {
		t.Fatalf("upsert driver: %v", err)
	}
	return id
}

func report(driverID uuid.UUID, at time.Time) models.DriverLocation {
	return models.DriverLocation{
		DriverID:   driverID,
		Latitude:   -1.2864,
		Longitude:  36.8172,
		SpeedKmh:   35,
		ReportedAt: at,
	}
}

func TestReport_UpdatesIndex(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	driverID := e.addDriver(t, types.DriverAvailable)

	if err := e.svc.Report(ctx, report(driverID, time.Now())); err != nil {
		t.Fatalf("report: %v", err)
	}

	loc, err := e.svc.Last(ctx, driverID)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if loc.Latitude != -1.2864 || loc.Longitude != 36.8172 {
		t.Errorf("stored location = %v,%v", loc.Latitude, loc.Longitude)
	}
	if e.archiver.count() != 1 {
		t.Errorf("archived reports = %d, want 1", e.archiver.count())
	}
}

func TestReport_DropsOutOfOrderDuplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	driverID := e.addDriver(t, types.DriverAvailable)
	now := time.Now()

	if err := e.svc.Report(ctx, report(driverID, now)); err != nil {
		t.Fatalf("report: %v", err)
	}
	// Redelivery of the same report and an older one both vanish quietly.
	if err := e.svc.Report(ctx, report(driverID, now)); err != nil {
		t.Fatalf("duplicate report: %v", err)
	}
	if err := e.svc.Report(ctx, report(driverID, now.Add(-10*time.Second))); err != nil {
		t.Fatalf("out-of-order report: %v", err)
	}

	if e.archiver.count() != 1 {
		t.Errorf("archived reports = %d, want 1 after dedupe", e.archiver.count())
	}
}

func TestReport_RejectsOfflineDriverAndBadCoords(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	offline := e.addDriver(t, types.DriverOffline)
	if err := e.svc.Report(ctx, report(offline, time.Now())); !errors.Is(err, types.ErrDriverOffline) {
		t.Errorf("offline driver: err = %v, want ErrDriverOffline", err)
	}

	online := e.addDriver(t, types.DriverAvailable)
	bad := report(online, time.Now())
	bad.Latitude = 91
	if err := e.svc.Report(ctx, bad); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("bad coords: err = %v, want ErrInvalidInput", err)
	}

	unknown := report(uuid.New(), time.Now())
	if err := e.svc.Report(ctx, unknown); !errors.Is(err, types.ErrDriverNotFound) {
		t.Errorf("unknown driver: err = %v, want ErrDriverNotFound", err)
	}
}

func TestReport_FansOutOnlyToHeldActiveBooking(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	held := e.addDriver(t, types.DriverBusy)
	idle := e.addDriver(t, types.DriverAvailable)

	bookingID := uuid.New()
	did := held
	err := e.bookings.Create(ctx, &models.Booking{
		ID:           bookingID,
		RiderID:      uuid.New(),
		DriverID:     &did,
		ServiceClass: types.ClassStandard,
		Status:       types.StatusEnRoute,
		Pickup:       models.Location{Latitude: -1.3000, Longitude: 36.8200},
		Destination:  models.Location{Latitude: -1.3192, Longitude: 36.8880},
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	e.resolver[held] = bookingID

	if err := e.svc.Report(ctx, report(held, time.Now())); err != nil {
		t.Fatalf("held driver report: %v", err)
	}
	if err := e.svc.Report(ctx, report(idle, time.Now())); err != nil {
		t.Fatalf("idle driver report: %v", err)
	}

	events := e.fanout.all()
	if len(events) != 1 {
		t.Fatalf("fanout events = %d, want 1 (held driver only)", len(events))
	}
	ev := events[0]
	if ev.BookingID != bookingID || ev.EventType != types.EventDriverLocation {
		t.Errorf("event = %s for %s", ev.EventType, ev.BookingID)
	}
}

func TestReport_StaleForwardedFlaggedWithoutEta(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	driverID := e.addDriver(t, types.DriverBusy)

	bookingID := uuid.New()
	did := driverID
	err := e.bookings.Create(ctx, &models.Booking{
		ID:           bookingID,
		RiderID:      uuid.New(),
		DriverID:     &did,
		ServiceClass: types.ClassStandard,
		Status:       types.StatusEnRoute,
		Pickup:       models.Location{Latitude: -1.3000, Longitude: 36.8200},
		Destination:  models.Location{Latitude: -1.3192, Longitude: 36.8880},
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	e.resolver[driverID] = bookingID

	aged := report(driverID, time.Now().Add(-2*freshness))
	if err := e.svc.Report(ctx, aged); err != nil {
		t.Fatalf("stale report: %v", err)
	}

	events := e.fanout.all()
	if len(events) != 1 {
		t.Fatalf("fanout events = %d, want 1", len(events))
	}
	var payload models.LocationPayload
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Stale {
		t.Error("stale report forwarded without stale flag")
	}
	if payload.EtaMinutes != nil {
		t.Errorf("stale report carries ETA %d, want none", *payload.EtaMinutes)
	}
}

func TestOnlineOffline_TogglesDispatchEligibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	driverID := e.addDriver(t, types.DriverOffline)

	if err := e.svc.Online(ctx, driverID); err != nil {
		t.Fatalf("online: %v", err)
	}
	if err := e.svc.Report(ctx, report(driverID, time.Now())); err != nil {
		t.Fatalf("report after online: %v", err)
	}

	near, err := e.index.Nearby(ctx, models.Location{Latitude: -1.2864, Longitude: 36.8172}, geo.Query{
		Class: types.ClassStandard, RadiusKm: 3, Limit: 10,
	})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(near) != 1 {
		t.Fatalf("nearby = %d drivers, want 1", len(near))
	}

	if err := e.svc.Offline(ctx, driverID); err != nil {
		t.Fatalf("offline: %v", err)
	}
	near, err = e.index.Nearby(ctx, models.Location{Latitude: -1.2864, Longitude: 36.8172}, geo.Query{
		Class: types.ClassStandard, RadiusKm: 3, Limit: 10,
	})
	if err != nil {
		t.Fatalf("nearby after offline: %v", err)
	}
	if len(near) != 0 {
		t.Fatalf("nearby after offline = %d drivers, want 0", len(near))
	}

	// Toggling to the current state is a no-op, not an error.
	if err := e.svc.Offline(ctx, driverID); err != nil {
		t.Errorf("repeat offline: %v", err)
	}
}
