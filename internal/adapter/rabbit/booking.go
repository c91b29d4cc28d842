package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/rabbit"
)

const BookingExchange = "booking_events"

// BookingBroker publishes booking lifecycle events to a topic exchange,
// routed by event type so consumers can bind to slices of the stream
// (booking.cancelled for refunds, booking.# for the audit archive).
type BookingBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewBookingBroker(client *rabbit.RabbitMQ, log logger.Logger) (*BookingBroker, error) {
	b := &BookingBroker{
		client:   client,
		exchange: BookingExchange,
		l:        log,
	}
	if err := b.declare(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BookingBroker) declare() error {
	if err := b.client.Channel.ExchangeDeclare(
		b.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
	}
	return nil
}

func (b *BookingBroker) Name() string { return "rabbitmq" }

// Publish sends one event with its event type as the routing key.
func (b *BookingBroker) Publish(ctx context.Context, ev models.OutboundEvent) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_booking_event")

	if err := b.client.EnsureConnection(ctx); err != nil {
		b.l.Error(ctx, "ensure connection failed", err)
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal event: %w", err))
	}

	if err := retry(5, time.Second, func() error {
		return b.client.Channel.PublishWithContext(
			ctx,
			b.exchange,
			string(ev.EventType), // routing key
			true,                 // mandatory
			false,                // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: ev.BookingID.String(),
				MessageId:     fmt.Sprintf("%s:%s", ev.BookingID, ev.EventType),
				Body:          body,
				Timestamp:     ev.OccurredAt,
			},
		)
	}); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to publish %s: %w", ev.EventType, err))
	}
	return nil
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for range n {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
