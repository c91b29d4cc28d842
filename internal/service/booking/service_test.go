package booking_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/inmem"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/booking"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/pricing"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	"github.com/Kwendataxi/kwenda-sub010/pkg/trm"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type fixture struct {
	svc     *booking.Service
	store   *inmem.BookingStore
	cancels *inmem.CancellationStore
	events  *inmem.EventStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inmem.NewBookingStore()
	cancels := inmem.NewCancellationStore()
	events := inmem.NewEventStore()
	svc := booking.NewService(
		store, cancels, events,
		trm.NopManager{},
		pricing.NewEngine(10),
		logger.InitLogger("booking-test", "error"),
	)
	return &fixture{svc: svc, store: store, cancels: cancels, events: events}
}

func nairobiTrip() (models.Location, models.Location) {
	return models.Location{Latitude: -1.2864, Longitude: 36.8172, Label: "CBD"},
		models.Location{Latitude: -1.3192, Longitude: 36.8880, Label: "South C"}
}

func (f *fixture) createConfirmed(t *testing.T) *models.Booking {
	t.Helper()
	pickup, dest := nairobiTrip()
	b, err := f.svc.Create(context.Background(), booking.CreateCommand{
		RiderID:      uuid.New(),
		ServiceClass: types.ClassStandard,
		Pickup:       pickup,
		Destination:  dest,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func TestCreate_ConfirmsAndPrices(t *testing.T) {
	f := newFixture(t)
	b := f.createConfirmed(t)

	if b.Status != types.StatusConfirmed {
		t.Fatalf("status = %s, want %s", b.Status, types.StatusConfirmed)
	}
	if b.EstimatedFare <= 0 {
		t.Errorf("estimated fare = %v, want > 0", b.EstimatedFare)
	}
	if b.EstimatedDistanceKm <= 0 || b.EstimatedDurationMin <= 0 {
		t.Errorf("distance/duration = %v/%v, want positive", b.EstimatedDistanceKm, b.EstimatedDurationMin)
	}
	if !strings.HasPrefix(b.BookingNumber, "BK_") {
		t.Errorf("booking number %q lacks BK_ prefix", b.BookingNumber)
	}

	evs := f.events.All()
	if len(evs) != 2 {
		t.Fatalf("events = %d, want requested + confirmed", len(evs))
	}
	if evs[0].EventType != types.EventBookingRequested || evs[1].EventType != types.EventBookingConfirmed {
		t.Errorf("event order = %s, %s", evs[0].EventType, evs[1].EventType)
	}
}

func TestCreate_SequentialBookingNumbers(t *testing.T) {
	f := newFixture(t)
	first := f.createConfirmed(t)
	second := f.createConfirmed(t)

	if first.BookingNumber == second.BookingNumber {
		t.Fatalf("duplicate booking number %q", first.BookingNumber)
	}
	if !strings.HasSuffix(first.BookingNumber, "_1") || !strings.HasSuffix(second.BookingNumber, "_2") {
		t.Errorf("numbers = %q, %q, want _1 and _2 suffixes", first.BookingNumber, second.BookingNumber)
	}
}

// A rapid resubmit from the same rider is rejected before anything is
// stored: exactly one booking exists afterwards, and other riders are
// unaffected.
func TestCreate_CoalescesRapidRetries(t *testing.T) {
	f := newFixture(t)
	f.svc.SetCoalesceWindow(time.Minute)
	pickup, dest := nairobiTrip()
	ctx := context.Background()
	riderID := uuid.New()

	cmd := booking.CreateCommand{
		RiderID:      riderID,
		ServiceClass: types.ClassStandard,
		Pickup:       pickup,
		Destination:  dest,
	}
	first, err := f.svc.Create(ctx, cmd)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := f.svc.Create(ctx, cmd); !errors.Is(err, types.ErrDuplicateRequest) {
		t.Fatalf("duplicate create err = %v, want ErrDuplicateRequest", err)
	}

	active, err := f.svc.ActiveBookings(ctx)
	if err != nil {
		t.Fatalf("active bookings: %v", err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Fatalf("active bookings = %d, want only the first booking", len(active))
	}

	other := cmd
	other.RiderID = uuid.New()
	if _, err := f.svc.Create(ctx, other); err != nil {
		t.Errorf("other rider inside the window: %v", err)
	}
}

// A rejected create releases the coalesce stamp, so a corrected retry
// inside the window goes through.
func TestCreate_FailedCreateDoesNotBlockRetry(t *testing.T) {
	f := newFixture(t)
	f.svc.SetCoalesceWindow(time.Minute)
	pickup, dest := nairobiTrip()
	ctx := context.Background()
	riderID := uuid.New()

	_, err := f.svc.Create(ctx, booking.CreateCommand{
		RiderID:      riderID,
		ServiceClass: "HELICOPTER",
		Pickup:       pickup,
		Destination:  dest,
	})
	if !errors.Is(err, types.ErrInvalidServiceClass) {
		t.Fatalf("invalid class err = %v, want ErrInvalidServiceClass", err)
	}

	if _, err := f.svc.Create(ctx, booking.CreateCommand{
		RiderID:      riderID,
		ServiceClass: types.ClassStandard,
		Pickup:       pickup,
		Destination:  dest,
	}); err != nil {
		t.Errorf("retry after rejected create: %v", err)
	}
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	pickup, dest := nairobiTrip()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, booking.CreateCommand{
		RiderID:      uuid.New(),
		ServiceClass: "HELICOPTER",
		Pickup:       pickup,
		Destination:  dest,
	})
	if !errors.Is(err, types.ErrInvalidServiceClass) {
		t.Errorf("unknown class: err = %v, want ErrInvalidServiceClass", err)
	}

	_, err = f.svc.Create(ctx, booking.CreateCommand{
		RiderID:         uuid.New(),
		ServiceClass:    types.ClassStandard,
		Pickup:          pickup,
		Destination:     dest,
		SurgeMultiplier: 0.5,
	})
	if !errors.Is(err, types.ErrInvalidSurge) {
		t.Errorf("sub-unit surge: err = %v, want ErrInvalidSurge", err)
	}
}

func TestAdvance_FullHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t)
	driverID := uuid.New()

	if _, err := f.svc.Assign(ctx, b.ID, driverID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	steps := []struct{ from, to types.BookingStatus }{
		{types.StatusDriverAssigned, types.StatusEnRoute},
		{types.StatusEnRoute, types.StatusPickedUp},
		{types.StatusPickedUp, types.StatusInProgress},
		{types.StatusInProgress, types.StatusCompleted},
	}
	for _, step := range steps {
		got, err := f.svc.Advance(ctx, b.ID, step.from, step.to, types.ActorDriver, nil)
		if err != nil {
			t.Fatalf("advance %s -> %s: %v", step.from, step.to, err)
		}
		if got.Status != step.to {
			t.Fatalf("advance %s -> %s: status = %s", step.from, step.to, got.Status)
		}
	}

	final, err := f.svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.FinalFare == nil || *final.FinalFare != final.EstimatedFare {
		t.Errorf("final fare = %v, want estimate %v", final.FinalFare, final.EstimatedFare)
	}
	if final.CompletedAt == nil || final.PickedUpAt == nil || final.AssignedAt == nil {
		t.Error("transition timestamps not stamped")
	}
}

func TestAdvance_FareOverrideAtCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t)

	if _, err := f.svc.Assign(ctx, b.ID, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, step := range []struct{ from, to types.BookingStatus }{
		{types.StatusDriverAssigned, types.StatusEnRoute},
		{types.StatusEnRoute, types.StatusPickedUp},
		{types.StatusPickedUp, types.StatusInProgress},
	} {
		if _, err := f.svc.Advance(ctx, b.ID, step.from, step.to, types.ActorDriver, nil); err != nil {
			t.Fatalf("advance to %s: %v", step.to, err)
		}
	}

	override := 2500.0
	got, err := f.svc.Advance(ctx, b.ID, types.StatusInProgress, types.StatusCompleted, types.ActorDriver, &override)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.FinalFare == nil || *got.FinalFare != override {
		t.Errorf("final fare = %v, want override %v", got.FinalFare, override)
	}
}

func TestAdvance_RejectsIllegalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t)

	// Skipping states is not a race, it is a protocol violation.
	_, err := f.svc.Advance(ctx, b.ID, types.StatusConfirmed, types.StatusCompleted, types.ActorDriver, nil)
	if !errors.Is(err, types.ErrInvalidTransition) {
		t.Errorf("skip to completed: err = %v, want ErrInvalidTransition", err)
	}

	// Cancellation has its own entry point.
	_, err = f.svc.Advance(ctx, b.ID, types.StatusConfirmed, types.StatusCancelled, types.ActorRider, nil)
	if !errors.Is(err, types.ErrInvalidTransition) {
		t.Errorf("cancel via advance: err = %v, want ErrInvalidTransition", err)
	}
}

func TestAdvance_StaleExpectationLosesCleanly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t)

	if _, err := f.svc.Assign(ctx, b.ID, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.svc.Advance(ctx, b.ID, types.StatusDriverAssigned, types.StatusEnRoute, types.ActorDriver, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// A caller still believing the booking is DRIVER_ASSIGNED lost a race
	// against a live booking: stale, retry after re-read.
	_, err := f.svc.Advance(ctx, b.ID, types.StatusDriverAssigned, types.StatusEnRoute, types.ActorDriver, nil)
	if !errors.Is(err, types.ErrStaleState) {
		t.Errorf("replayed advance: err = %v, want ErrStaleState", err)
	}
}

func TestAdvance_AgainstTerminalBookingIsInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t)

	if _, err := f.svc.Cancel(ctx, b.ID, types.ActorRider, "changed plans"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.svc.Advance(ctx, b.ID, types.StatusConfirmed, types.StatusDriverAssigned, types.ActorSystem, nil)
	if !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("advance cancelled booking: err = %v, want ErrInvalidState", err)
	}
}

func TestCancel_FeeDependsOnState(t *testing.T) {
	ctx := context.Background()

	t.Run("before assignment is free", func(t *testing.T) {
		f := newFixture(t)
		b := f.createConfirmed(t)
		rec, err := f.svc.Cancel(ctx, b.ID, types.ActorRider, "changed plans")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if rec.Fee != 0 {
			t.Errorf("fee = %v, want 0", rec.Fee)
		}
		if rec.StateAtCancellation != types.StatusConfirmed {
			t.Errorf("state at cancellation = %s", rec.StateAtCancellation)
		}
	})

	t.Run("after assignment charges the percentage", func(t *testing.T) {
		f := newFixture(t)
		b := f.createConfirmed(t)
		if _, err := f.svc.Assign(ctx, b.ID, uuid.New()); err != nil {
			t.Fatalf("assign: %v", err)
		}
		rec, err := f.svc.Cancel(ctx, b.ID, types.ActorRider, "found another ride")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if rec.Fee <= 0 {
			t.Errorf("fee = %v, want > 0 after assignment", rec.Fee)
		}
	})
}

func TestCancel_IdempotentOnRepeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t)

	first, err := f.svc.Cancel(ctx, b.ID, types.ActorRider, "changed plans")
	if err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	second, err := f.svc.Cancel(ctx, b.ID, types.ActorRider, "retry after timeout")
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if second.Reason != first.Reason || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("repeat cancel returned a new record: %+v vs %+v", second, first)
	}

	var cancelEvents int
	for _, ev := range f.events.All() {
		if ev.EventType == types.EventBookingCancelled {
			cancelEvents++
		}
	}
	if cancelEvents != 1 {
		t.Errorf("cancelled events = %d, want exactly 1", cancelEvents)
	}
}

func TestCancel_RejectedAfterPickup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t)

	if _, err := f.svc.Assign(ctx, b.ID, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, step := range []struct{ from, to types.BookingStatus }{
		{types.StatusDriverAssigned, types.StatusEnRoute},
		{types.StatusEnRoute, types.StatusPickedUp},
	} {
		if _, err := f.svc.Advance(ctx, b.ID, step.from, step.to, types.ActorDriver, nil); err != nil {
			t.Fatalf("advance to %s: %v", step.to, err)
		}
	}

	_, err := f.svc.Cancel(ctx, b.ID, types.ActorRider, "too late")
	if !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("cancel after pickup: err = %v, want ErrInvalidState", err)
	}
}

func TestMarkNoDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createConfirmed(t)

	if err := f.svc.MarkNoDriver(ctx, b.ID); err != nil {
		t.Fatalf("mark no-driver: %v", err)
	}
	got, err := f.svc.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != types.StatusNoDriverAvailable {
		t.Fatalf("status = %s", got.Status)
	}

	// Repeat delivery of the same outcome is a no-op.
	if err := f.svc.MarkNoDriver(ctx, b.ID); err != nil {
		t.Errorf("repeat mark no-driver: %v", err)
	}

	// But a booking that found a driver must not be clobbered.
	b2 := f.createConfirmed(t)
	if _, err := f.svc.Assign(ctx, b2.ID, uuid.New()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.svc.MarkNoDriver(ctx, b2.ID); !errors.Is(err, types.ErrInvalidState) {
		t.Errorf("mark no-driver on assigned booking: err = %v, want ErrInvalidState", err)
	}
}

func TestActiveBookings_ExcludesTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	live := f.createConfirmed(t)
	dead := f.createConfirmed(t)
	if _, err := f.svc.Cancel(ctx, dead.ID, types.ActorRider, "nope"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	active, err := f.svc.ActiveBookings(ctx)
	if err != nil {
		t.Fatalf("active bookings: %v", err)
	}
	if len(active) != 1 || active[0].ID != live.ID {
		t.Fatalf("active = %+v, want only %s", active, live.ID)
	}
}

func TestEstimateFare_Quote(t *testing.T) {
	f := newFixture(t)
	pickup, dest := nairobiTrip()

	q, err := f.svc.EstimateFare(context.Background(), booking.QuoteCommand{
		ServiceClass:    types.ClassExpress,
		Pickup:          pickup,
		Destination:     dest,
		SurgeMultiplier: 1.5,
	})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if q.EstimatedFare <= 0 || q.EstimatedDistanceKm <= 0 || q.EstimatedDurationMin <= 0 {
		t.Errorf("quote = %+v, want positive fields", q)
	}
	if q.SurgeMultiplier != 1.5 {
		t.Errorf("surge = %v, want 1.5 passed through", q.SurgeMultiplier)
	}
}
