package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/geo"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/metrics"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// Service ingests driver position reports, keeps the geo index current,
// and forwards positions to the riders watching the driver's booking.
type Service struct {
	index     geo.Index
	drivers   DriverRepo
	bookings  BookingReader
	archiver  Archiver
	fanout    Broadcaster
	resolver  AssignmentResolver
	freshness time.Duration

	l   logger.Logger
	now func() time.Time
}

func NewService(
	index geo.Index,
	drivers DriverRepo,
	bookings BookingReader,
	archiver Archiver,
	fanout Broadcaster,
	resolver AssignmentResolver,
	freshness time.Duration,
	l logger.Logger,
) *Service {
	return &Service{
		index:     index,
		drivers:   drivers,
		bookings:  bookings,
		archiver:  archiver,
		fanout:    fanout,
		resolver:  resolver,
		freshness: freshness,
		l:         l,
		now:       time.Now,
	}
}

// Report ingests one position update. Out-of-order duplicates are
// dropped; reports older than the freshness window are stored and
// forwarded flagged stale rather than rejected.
func (s *Service) Report(ctx context.Context, report models.DriverLocation) error {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionLocationReport, DriverID: report.DriverID.String()})

	if report.Latitude < -90 || report.Latitude > 90 || report.Longitude < -180 || report.Longitude > 180 {
		metrics.LocationReportsTotal.WithLabelValues("rejected").Inc()
		return wrap.Error(ctx, fmt.Errorf("coordinates out of range: %w", types.ErrInvalidInput))
	}

	driver, err := s.drivers.Get(ctx, report.DriverID)
	if err != nil {
		metrics.LocationReportsTotal.WithLabelValues("rejected").Inc()
		return wrap.Error(ctx, err)
	}
	if driver.Status == types.DriverOffline {
		metrics.LocationReportsTotal.WithLabelValues("rejected").Inc()
		return wrap.Error(ctx, types.ErrDriverOffline)
	}

	// A report that does not advance the clock for this driver is a
	// redelivery; the index already holds something at least as new.
	if last, err := s.index.Location(ctx, report.DriverID); err == nil || errors.Is(err, types.ErrStaleLocation) {
		if !report.ReportedAt.After(last.ReportedAt) {
			metrics.LocationReportsTotal.WithLabelValues("duplicate").Inc()
			return nil
		}
	}

	stale := s.now().Sub(report.ReportedAt) > s.freshness
	report.Available = driver.Status == types.DriverAvailable

	if err := s.index.Upsert(ctx, *driver, report); err != nil {
		metrics.LocationReportsTotal.WithLabelValues("rejected").Inc()
		return wrap.Error(ctx, fmt.Errorf("index upsert: %w", err))
	}
	if stale {
		metrics.LocationReportsTotal.WithLabelValues("stale").Inc()
	} else {
		metrics.LocationReportsTotal.WithLabelValues("accepted").Inc()
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, report); err != nil {
			s.l.Warn(ctx, "location archive failed", "error", err.Error())
		}
	}

	s.forward(ctx, driver, report, stale)
	return nil
}

// forward pushes the position to the booking the driver is serving, with
// a live ETA toward the leg the trip is on. Nothing happens for idle
// drivers.
func (s *Service) forward(ctx context.Context, driver *models.Driver, report models.DriverLocation, stale bool) {
	if s.fanout == nil || s.resolver == nil || s.bookings == nil {
		return
	}
	bookingID, held := s.resolver.Holder(report.DriverID)
	if !held {
		return
	}
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil || !b.Status.IsActive() || !b.Status.RequiresDriver() {
		return
	}

	payload := models.LocationPayload{
		DriverID:       report.DriverID,
		Latitude:       report.Latitude,
		Longitude:      report.Longitude,
		HeadingDegrees: report.HeadingDegrees,
		SpeedKmh:       report.SpeedKmh,
		Stale:          stale,
		ReportedAt:     report.ReportedAt,
	}
	if !stale {
		target := b.Pickup
		if b.Status == types.StatusPickedUp || b.Status == types.StatusInProgress {
			target = b.Destination
		}
		distKm := geo.HaversineDistance(report.Latitude, report.Longitude, target.Latitude, target.Longitude)
		eta := geo.EtaMinutes(distKm, b.ServiceClass)
		payload.EtaMinutes = &eta
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		s.l.Error(ctx, "marshal location payload", err)
		return
	}
	s.fanout.Broadcast(ctx, models.OutboundEvent{
		BookingID:  bookingID,
		EventType:  types.EventDriverLocation,
		Payload:    raw,
		OccurredAt: report.ReportedAt,
	})
}

// Register creates or refreshes a driver profile. New drivers start offline.
func (s *Service) Register(ctx context.Context, d models.Driver) error {
	if !d.ServiceClass.Valid() {
		return fmt.Errorf("service class %q: %w", d.ServiceClass, types.ErrInvalidServiceClass)
	}
	if d.Status == "" {
		d.Status = types.DriverOffline
	}
	return s.drivers.Upsert(ctx, &d)
}

// Online makes a driver eligible for dispatch.
func (s *Service) Online(ctx context.Context, driverID uuid.UUID) error {
	ctx = wrap.WithDriverID(ctx, driverID.String())
	driver, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if driver.Status == types.DriverAvailable {
		return nil
	}
	if err := s.drivers.SetStatus(ctx, driverID, types.DriverAvailable); err != nil {
		return wrap.Error(ctx, err)
	}
	if err := s.index.SetAvailability(ctx, driverID, true); err != nil && !errors.Is(err, types.ErrDriverNotFound) {
		return wrap.Error(ctx, err)
	}
	metrics.DriversOnlineGauge.Inc()
	s.l.Info(ctx, "driver online")
	return nil
}

// Offline withdraws a driver from dispatch and drops them from the index.
func (s *Service) Offline(ctx context.Context, driverID uuid.UUID) error {
	ctx = wrap.WithDriverID(ctx, driverID.String())
	driver, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if driver.Status == types.DriverOffline {
		return nil
	}
	if err := s.drivers.SetStatus(ctx, driverID, types.DriverOffline); err != nil {
		return wrap.Error(ctx, err)
	}
	if err := s.index.Remove(ctx, driverID); err != nil && !errors.Is(err, types.ErrDriverNotFound) {
		return wrap.Error(ctx, err)
	}
	metrics.DriversOnlineGauge.Dec()
	s.l.Info(ctx, "driver offline")
	return nil
}

// Last returns the driver's most recent known position. The caller gets
// ErrStaleLocation alongside the data when the report has aged out.
func (s *Service) Last(ctx context.Context, driverID uuid.UUID) (models.DriverLocation, error) {
	return s.index.Location(ctx, driverID)
}
