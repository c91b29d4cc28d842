package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/geo"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/pricing"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/metrics"
	"github.com/Kwendataxi/kwenda-sub010/pkg/trm"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// CreateCommand is the input for a new booking request.
type CreateCommand struct {
	RiderID         uuid.UUID
	ServiceClass    types.ServiceClass
	Pickup          models.Location
	Destination     models.Location
	SurgeMultiplier float64
}

// QuoteCommand asks for a fare estimate without creating anything.
type QuoteCommand struct {
	ServiceClass    types.ServiceClass
	Pickup          models.Location
	Destination     models.Location
	SurgeMultiplier float64
}

// Quote is the answer to a fare estimate request.
type Quote struct {
	ServiceClass         types.ServiceClass `json:"serviceClass"`
	EstimatedFare        float64            `json:"estimatedFare"`
	EstimatedDistanceKm  float64            `json:"estimatedDistanceKm"`
	EstimatedDurationMin int                `json:"estimatedDurationMin"`
	SurgeMultiplier      float64            `json:"surgeMultiplier"`
}

// Service owns the booking state machine. Every transition goes through
// a compare-and-set on the stored status, so concurrent actors race on
// the database row rather than on in-process state.
type Service struct {
	repo       BookingRepo
	cancels    CancellationRepo
	events     EventRepo
	trm        trm.TxManager
	pricing    *pricing.Engine
	dispatcher Dispatcher
	releaser   ReservationReleaser

	coalesceWindow time.Duration
	recentMu       sync.Mutex
	recent         map[uuid.UUID]time.Time // rider id -> last accepted create

	l   logger.Logger
	now func() time.Time
}

func NewService(
	repo BookingRepo,
	cancels CancellationRepo,
	events EventRepo,
	txMgr trm.TxManager,
	engine *pricing.Engine,
	l logger.Logger,
) *Service {
	return &Service{
		repo:    repo,
		cancels: cancels,
		events:  events,
		trm:     txMgr,
		pricing: engine,
		recent:  make(map[uuid.UUID]time.Time),
		l:       l,
		now:     time.Now,
	}
}

// SetDispatcher wires the matcher in after construction; the matcher
// itself depends on this service for Assign, so the app layer closes
// the loop.
func (s *Service) SetDispatcher(d Dispatcher) { s.dispatcher = d }

// SetReleaser wires the driver reservation registry.
func (s *Service) SetReleaser(r ReservationReleaser) { s.releaser = r }

// SetCoalesceWindow rejects a second booking request from the same rider
// inside the window, before anything is committed. Zero disables it.
func (s *Service) SetCoalesceWindow(d time.Duration) { s.coalesceWindow = d }

// EstimateFare prices a hypothetical trip.
func (s *Service) EstimateFare(ctx context.Context, cmd QuoteCommand) (*Quote, error) {
	if !cmd.ServiceClass.Valid() {
		return nil, fmt.Errorf("service class %q: %w", cmd.ServiceClass, types.ErrInvalidServiceClass)
	}
	if cmd.SurgeMultiplier != 0 && cmd.SurgeMultiplier < 1 {
		return nil, types.ErrInvalidSurge
	}

	distKm := geo.HaversineDistance(
		cmd.Pickup.Latitude, cmd.Pickup.Longitude,
		cmd.Destination.Latitude, cmd.Destination.Longitude,
	)
	return &Quote{
		ServiceClass:         cmd.ServiceClass,
		EstimatedFare:        s.pricing.Estimate(cmd.ServiceClass, distKm, cmd.SurgeMultiplier),
		EstimatedDistanceKm:  math.Round(distKm*100) / 100,
		EstimatedDurationMin: geo.EtaMinutes(distKm, cmd.ServiceClass),
		SurgeMultiplier:      math.Max(cmd.SurgeMultiplier, 1),
	}, nil
}

// Create registers a booking, confirms it, and hands it to the
// dispatcher. The booking is returned in its confirmed state; driver
// assignment follows asynchronously.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*models.Booking, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionCreateBooking, RiderID: cmd.RiderID.String()})

	if cmd.RiderID.IsZero() {
		return nil, wrap.Error(ctx, fmt.Errorf("rider id is required: %w", types.ErrInvalidInput))
	}
	if err := s.coalesce(cmd.RiderID); err != nil {
		s.l.Warn(ctx, "duplicate request coalesced")
		return nil, wrap.Error(ctx, err)
	}
	quote, err := s.EstimateFare(ctx, QuoteCommand{
		ServiceClass:    cmd.ServiceClass,
		Pickup:          cmd.Pickup,
		Destination:     cmd.Destination,
		SurgeMultiplier: cmd.SurgeMultiplier,
	})
	if err != nil {
		s.forgetRider(cmd.RiderID)
		return nil, wrap.Error(ctx, err)
	}

	now := s.now().UTC()
	b := &models.Booking{
		ID:                   uuid.New(),
		RiderID:              cmd.RiderID,
		ServiceClass:         cmd.ServiceClass,
		Status:               types.StatusRequested,
		Pickup:               cmd.Pickup,
		Destination:          cmd.Destination,
		EstimatedFare:        quote.EstimatedFare,
		EstimatedDistanceKm:  quote.EstimatedDistanceKm,
		EstimatedDurationMin: quote.EstimatedDurationMin,
		SurgeMultiplier:      quote.SurgeMultiplier,
		CreatedAt:            now,
	}
	ctx = wrap.WithBookingID(ctx, b.ID.String())

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		seq, err := s.repo.CountForDate(ctx, now)
		if err != nil {
			return fmt.Errorf("booking sequence: %w", err)
		}
		b.BookingNumber = bookingNumber(now, seq+1)

		if err := s.repo.Create(ctx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		if err := s.appendEvent(ctx, b, types.EventBookingRequested, nil); err != nil {
			return err
		}

		// Requests are accepted immediately, so confirmation happens in
		// the same transaction before the dispatcher ever sees the row.
		ok, err := s.repo.UpdateStatus(ctx, b.ID, types.StatusRequested, types.StatusConfirmed, StatusUpdate{At: now})
		if err != nil {
			return fmt.Errorf("confirm booking: %w", err)
		}
		if !ok {
			return types.ErrStaleState
		}
		b.Status = types.StatusConfirmed
		return s.appendEvent(ctx, b, types.EventBookingConfirmed, &models.TransitionPayload{
			From:  types.StatusRequested,
			To:    types.StatusConfirmed,
			Actor: types.ActorSystem,
		})
	})
	if err != nil {
		s.forgetRider(cmd.RiderID)
		return nil, wrap.Error(ctx, err)
	}

	metrics.BookingsTotal.WithLabelValues(string(types.StatusConfirmed)).Inc()
	metrics.ActiveBookingsGauge.Inc()
	s.l.Info(ctx, "booking created", "booking_number", b.BookingNumber, "estimated_fare", b.EstimatedFare)

	if s.dispatcher != nil {
		snapshot := *b
		go func() {
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
			defer cancel()
			if err := s.dispatcher.Dispatch(dctx, &snapshot); err != nil &&
				!errors.Is(err, types.ErrNoDriverAvailable) &&
				!errors.Is(err, types.ErrStaleState) && !errors.Is(err, types.ErrInvalidState) {
				s.l.Error(dctx, "dispatch failed", err)
			}
		}()
	}
	return b, nil
}

// Advance moves a booking from expected to next. The caller states the
// status it believes the booking is in; a mismatch with the transition
// table is an invalid transition, a lost race is stale state.
// Cancellations must go through Cancel, never through here.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, expected, next types.BookingStatus, actor types.Actor, fareOverride *float64) (*models.Booking, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionAdvanceBooking, BookingID: id.String()})

	if next == types.StatusCancelled || !CanTransition(expected, next) {
		return nil, wrap.Error(ctx, fmt.Errorf("%s -> %s: %w", expected, next, types.ErrInvalidTransition))
	}

	var b *models.Booking
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.Get(ctx, id)
		if err != nil {
			return err
		}

		upd := StatusUpdate{At: s.now().UTC()}
		if next == types.StatusCompleted {
			fare := s.pricing.Final(b.EstimatedFare, fareOverride)
			upd.FinalFare = &fare
		}
		ok, err := s.repo.UpdateStatus(ctx, id, expected, next, upd)
		if err != nil {
			return fmt.Errorf("advance %s: %w", next, err)
		}
		if !ok {
			return s.casMissError(ctx, id)
		}

		b.Status = next
		b.FinalFare = upd.FinalFare
		s.stampTransition(b, next, upd.At)
		return s.appendEvent(ctx, b, types.EventForStatus(next), &models.TransitionPayload{
			From:     expected,
			To:       next,
			Actor:    actor,
			DriverID: b.DriverID,
		})
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.BookingsTotal.WithLabelValues(string(next)).Inc()
	if b.Status.IsTerminal() {
		metrics.ActiveBookingsGauge.Dec()
		if s.releaser != nil && b.DriverID != nil {
			s.releaser.Release(*b.DriverID)
		}
	}
	s.l.Info(ctx, "booking advanced", "from", expected, "to", next, "actor", actor)
	return b, nil
}

// Cancel ends a booking before pickup and records who did it, why, and
// what it cost them. Cancelling an already-cancelled booking returns
// the stored record unchanged.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor types.Actor, reason string) (*models.CancellationRecord, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionCancelBooking, BookingID: id.String()})

	var (
		rec          *models.CancellationRecord
		driverID     *uuid.UUID
		cancelledNow bool
	)
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		b, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == types.StatusCancelled {
			rec, err = s.cancels.Get(ctx, id)
			return err
		}
		if !cancellable(b.Status) {
			return fmt.Errorf("cancel from %s: %w", b.Status, types.ErrInvalidState)
		}

		now := s.now().UTC()
		fee := s.pricing.CancellationFee(b.Status, b.EstimatedFare)
		ok, err := s.repo.UpdateStatus(ctx, id, b.Status, types.StatusCancelled, StatusUpdate{
			CancellationReason: &reason,
			CancelledBy:        &actor,
			At:                 now,
		})
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if !ok {
			return s.casMissError(ctx, id)
		}

		rec = &models.CancellationRecord{
			BookingID:           id,
			Actor:               actor,
			Reason:              reason,
			StateAtCancellation: b.Status,
			Fee:                 fee,
			CreatedAt:           now,
		}
		if err := s.cancels.Create(ctx, rec); err != nil {
			return fmt.Errorf("cancellation record: %w", err)
		}

		cancelledNow = true
		driverID = b.DriverID
		from := b.Status
		b.Status = types.StatusCancelled
		b.CancelledAt = &now
		return s.appendEvent(ctx, b, types.EventBookingCancelled, &models.TransitionPayload{
			From:     from,
			To:       types.StatusCancelled,
			Actor:    actor,
			DriverID: driverID,
		})
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if cancelledNow {
		metrics.BookingsTotal.WithLabelValues(string(types.StatusCancelled)).Inc()
		metrics.ActiveBookingsGauge.Dec()
		if s.releaser != nil && driverID != nil {
			s.releaser.Release(*driverID)
		}
	}
	s.l.Info(ctx, "booking cancelled", "actor", actor, "fee", rec.Fee, "state_at_cancellation", rec.StateAtCancellation)
	return rec, nil
}

// Assign claims a confirmed booking for a driver. Called by the
// dispatcher while it holds the driver reservation.
func (s *Service) Assign(ctx context.Context, bookingID, driverID uuid.UUID) (*models.Booking, error) {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{
		Action:    types.ActionDispatch,
		BookingID: bookingID.String(),
		DriverID:  driverID.String(),
	})

	var b *models.Booking
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		ok, err := s.repo.UpdateStatus(ctx, bookingID, types.StatusConfirmed, types.StatusDriverAssigned, StatusUpdate{
			DriverID: &driverID,
			At:       now,
		})
		if err != nil {
			return fmt.Errorf("assign driver: %w", err)
		}
		if !ok {
			return s.casMissError(ctx, bookingID)
		}
		b, err = s.repo.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		return s.appendEvent(ctx, b, types.EventDriverAssigned, &models.TransitionPayload{
			From:     types.StatusConfirmed,
			To:       types.StatusDriverAssigned,
			Actor:    types.ActorSystem,
			DriverID: &driverID,
		})
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.BookingsTotal.WithLabelValues(string(types.StatusDriverAssigned)).Inc()
	s.l.Info(ctx, "driver assigned", "booking_number", b.BookingNumber)
	return b, nil
}

// MarkNoDriver closes a booking the dispatcher could not fill. Safe to
// call twice; a booking already past confirmation is left alone.
func (s *Service) MarkNoDriver(ctx context.Context, bookingID uuid.UUID) error {
	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{Action: types.ActionDispatch, BookingID: bookingID.String()})

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		b, err := s.repo.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case types.StatusNoDriverAvailable:
			return nil
		case types.StatusRequested, types.StatusConfirmed:
		default:
			return fmt.Errorf("mark no-driver from %s: %w", b.Status, types.ErrInvalidState)
		}

		from := b.Status
		ok, err := s.repo.UpdateStatus(ctx, bookingID, from, types.StatusNoDriverAvailable, StatusUpdate{At: s.now().UTC()})
		if err != nil {
			return fmt.Errorf("mark no-driver: %w", err)
		}
		if !ok {
			return s.casMissError(ctx, bookingID)
		}
		b.Status = types.StatusNoDriverAvailable
		return s.appendEvent(ctx, b, types.EventNoDriverAvailable, &models.TransitionPayload{
			From:  from,
			To:    types.StatusNoDriverAvailable,
			Actor: types.ActorSystem,
		})
	})
	if err != nil {
		return wrap.Error(ctx, err)
	}

	metrics.BookingsTotal.WithLabelValues(string(types.StatusNoDriverAvailable)).Inc()
	metrics.ActiveBookingsGauge.Dec()
	s.l.Warn(ctx, "no driver available, booking closed")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.repo.Get(ctx, id)
}

// ActiveBookings lists every booking in a non-terminal state.
func (s *Service) ActiveBookings(ctx context.Context) ([]models.BookingOverview, error) {
	return s.repo.ListActive(ctx)
}

// Cancellation returns the stored record for a cancelled booking.
func (s *Service) Cancellation(ctx context.Context, bookingID uuid.UUID) (*models.CancellationRecord, error) {
	return s.cancels.Get(ctx, bookingID)
}

// coalesce admits one request per rider per window. The stamp is taken
// before the transaction so a racing duplicate never reaches the store;
// a failed create releases it via forgetRider so retries stay legal.
func (s *Service) coalesce(riderID uuid.UUID) error {
	if s.coalesceWindow <= 0 {
		return nil
	}
	s.recentMu.Lock()
	defer s.recentMu.Unlock()

	if last, ok := s.recent[riderID]; ok && s.now().Sub(last) < s.coalesceWindow {
		return types.ErrDuplicateRequest
	}
	s.recent[riderID] = s.now()
	return nil
}

func (s *Service) forgetRider(riderID uuid.UUID) {
	if s.coalesceWindow <= 0 {
		return
	}
	s.recentMu.Lock()
	delete(s.recent, riderID)
	s.recentMu.Unlock()
}

// casMissError distinguishes a race against another live transition
// from a race against a terminal one.
func (s *Service) casMissError(ctx context.Context, id uuid.UUID) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status.IsTerminal() {
		return fmt.Errorf("booking is %s: %w", b.Status, types.ErrInvalidState)
	}
	return fmt.Errorf("booking moved to %s: %w", b.Status, types.ErrStaleState)
}

func (s *Service) appendEvent(ctx context.Context, b *models.Booking, et types.EventType, payload *models.TransitionPayload) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		raw = data
	}
	ev := &models.BookingEvent{
		BookingID:  b.ID,
		EventType:  et,
		Payload:    raw,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Append(ctx, ev); err != nil {
		return fmt.Errorf("append %s event: %w", et, err)
	}
	return nil
}

func (s *Service) stampTransition(b *models.Booking, next types.BookingStatus, at time.Time) {
	switch next {
	case types.StatusDriverAssigned:
		b.AssignedAt = &at
	case types.StatusPickedUp:
		b.PickedUpAt = &at
	case types.StatusCompleted:
		b.CompletedAt = &at
	}
}

// bookingNumber builds the human-facing reference, e.g. BK_20260829_42.
func bookingNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("BK_%s_%d", day.Format("20060102"), seq)
}
