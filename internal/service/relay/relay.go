// Package relay drains the booking event outbox and pushes each event to
// the configured sinks. Events are published at least once; every sink
// and consumer must tolerate redelivery, which lifecycle events make
// cheap by being unique per (booking, event type).
package relay

import (
	"context"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/metrics"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// Sink delivers one event to an external surface. A sink error keeps the
// event in the outbox for the next poll.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev models.OutboundEvent) error
}

// Outbox is the slice of the event store the relay reads.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]models.BookingEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

type dedupeKey struct {
	bookingID uuid.UUID
	eventType types.EventType
}

type Relay struct {
	outbox   Outbox
	sinks    []Sink
	interval time.Duration
	batch    int

	// seen suppresses resends of lifecycle events the process already
	// delivered but failed to mark, e.g. after a crash mid-batch.
	seen map[dedupeKey]bool

	l logger.Logger
}

func New(outbox Outbox, sinks []Sink, interval time.Duration, batch int, l logger.Logger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{
		outbox:   outbox,
		sinks:    sinks,
		interval: interval,
		batch:    batch,
		seen:     make(map[dedupeKey]bool),
		l:        l,
	}
}

// Run polls until the context ends. Blocking; start in its own goroutine.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				r.l.Error(ctx, "outbox drain failed", err)
			}
		}
	}
}

// Drain publishes one batch of pending events. Exported so tests and
// shutdown paths can flush synchronously.
func (r *Relay) Drain(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRelayPublish)

	pending, err := r.outbox.FetchUnpublished(ctx, r.batch)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if len(pending) == 0 {
		return nil
	}

	var done []int64
	for _, ev := range pending {
		key := dedupeKey{ev.BookingID, ev.EventType}
		if ev.EventType.IsLifecycleEvent() && r.seen[key] {
			done = append(done, ev.ID)
			metrics.RecordRelayPublish(string(ev.EventType), "deduplicated")
			continue
		}

		if !r.publish(ctx, ev.Outbound()) {
			// Leave this and everything after it for the next poll so
			// ordering within the booking's stream holds.
			break
		}
		if ev.EventType.IsLifecycleEvent() {
			r.seen[key] = true
		}
		done = append(done, ev.ID)
	}

	if len(done) == 0 {
		return nil
	}
	if err := r.outbox.MarkPublished(ctx, done); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}

func (r *Relay) publish(ctx context.Context, ev models.OutboundEvent) bool {
	evCtx := wrap.WithBookingID(ctx, ev.BookingID.String())
	for _, sink := range r.sinks {
		if err := sink.Publish(evCtx, ev); err != nil {
			metrics.RecordRelayPublish(string(ev.EventType), "failed")
			r.l.Warn(evCtx, "event publish failed", "sink", sink.Name(), "event_type", ev.EventType, "error", err.Error())
			return false
		}
	}
	metrics.RecordRelayPublish(string(ev.EventType), "published")
	return true
}
