package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/geo"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/metrics"
)

// Options tune the candidate search.
type Options struct {
	InitialRadiusKm float64
	MaxRounds       int
	CandidateLimit  int
}

func (o Options) withDefaults() Options {
	if o.InitialRadiusKm <= 0 {
		o.InitialRadiusKm = 3
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = 4
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = 10
	}
	return o
}

// Matcher turns a pending booking into a reserved driver. Candidates are
// ranked by distance with rating as the tie-break; the search radius doubles
// every empty round until MaxRounds is exhausted.
type Matcher struct {
	index        GeoIndex
	lifecycle    Lifecycle
	reservations *Registry
	opts         Options
	l            logger.Logger

	now func() time.Time
}

func NewMatcher(index GeoIndex, lifecycle Lifecycle, reservations *Registry, opts Options, l logger.Logger) *Matcher {
	return &Matcher{
		index:        index,
		lifecycle:    lifecycle,
		reservations: reservations,
		opts:         opts.withDefaults(),
		l:            l,
		now:          time.Now,
	}
}

// Dispatch finds and reserves a driver for the booking, then hands the
// reservation to the lifecycle. On exhaustion the booking is marked
// no_driver_available and types.ErrNoDriverAvailable is returned.
func (m *Matcher) Dispatch(ctx context.Context, b *models.Booking) error {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:    types.ActionDispatch,
		BookingID: b.ID.String(),
		RiderID:   b.RiderID.String(),
	})

	start := m.now()
	radius := m.opts.InitialRadiusKm

	for round := 0; round < m.opts.MaxRounds; round++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		candidates, err := m.index.Nearby(ctx, b.Pickup, geo.Query{
			Class:    b.ServiceClass,
			RadiusKm: radius,
			Limit:    m.opts.CandidateLimit,
		})
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("geo query failed: %w", err))
		}

		for _, c := range candidates {
			assigned, err := m.tryReserve(ctx, b, c)
			if err != nil {
				return err
			}
			if assigned {
				metrics.DispatchRoundsTotal.WithLabelValues("matched").Inc()
				metrics.DispatchDuration.Observe(m.now().Sub(start).Seconds())
				m.l.Info(ctx, "driver reserved",
					"driver_id", c.Driver.ID,
					"distance_km", c.DistanceKm,
					"round", round,
				)
				return nil
			}
		}

		radius *= 2
	}

	metrics.DispatchRoundsTotal.WithLabelValues("exhausted").Inc()
	metrics.DispatchDuration.Observe(m.now().Sub(start).Seconds())

	if err := m.lifecycle.MarkNoDriver(ctx, b.ID); err != nil {
		return wrap.Error(ctx, fmt.Errorf("mark no driver: %w", err))
	}
	m.l.Info(ctx, "dispatch exhausted, no driver available")
	return types.ErrNoDriverAvailable
}

// tryReserve claims one candidate and advances the lifecycle. Returns
// (false, nil) when the candidate was lost to a race or went offline and the
// search should continue with the next one.
func (m *Matcher) tryReserve(ctx context.Context, b *models.Booking, c models.Candidate) (bool, error) {
	if err := m.reservations.Reserve(c.Driver.ID, b.ID); err != nil {
		if errors.Is(err, types.ErrReservationConflict) {
			metrics.ReservationConflictsTotal.Inc()
			return false, nil
		}
		return false, err
	}

	// The ranking snapshot may be outdated: a driver that dropped offline
	// between ranking and claim fails the attempt here, not silently later.
	loc, err := m.index.Location(ctx, c.Driver.ID)
	if err != nil || !loc.Available {
		m.reservations.Release(c.Driver.ID)
		m.l.Debug(ctx, "candidate no longer available", "driver_id", c.Driver.ID)
		return false, nil
	}

	if _, err := m.lifecycle.Assign(ctx, b.ID, c.Driver.ID); err != nil {
		m.reservations.Release(c.Driver.ID)
		switch {
		case errors.Is(err, types.ErrStaleState), errors.Is(err, types.ErrInvalidState):
			// The booking moved on (e.g. rider cancelled mid-search).
			m.l.Info(ctx, "booking no longer assignable", "err", err.Error())
			return false, err
		default:
			return false, wrap.Error(ctx, fmt.Errorf("assign driver: %w", err))
		}
	}

	return true, nil
}
