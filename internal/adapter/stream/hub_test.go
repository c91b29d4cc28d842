package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/stream"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
	wsHub "github.com/Kwendataxi/kwenda-sub010/pkg/wsHub"
)

func TestHubSink_PublishWithoutSubscribers(t *testing.T) {
	l := logger.InitLogger("stream-test", "error")
	sink := stream.NewHubSink(wsHub.NewConnHub(l))

	if got := sink.Name(); got != "websocket" {
		t.Fatalf("sink name = %q, want %q", got, "websocket")
	}

	ev := models.OutboundEvent{
		BookingID:  uuid.New(),
		EventType:  types.EventBookingConfirmed,
		OccurredAt: time.Now(),
	}
	if err := sink.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish with no subscribers: %v", err)
	}
	sink.Broadcast(context.Background(), ev)
}

func TestHub_SubscriberBookkeeping(t *testing.T) {
	l := logger.InitLogger("stream-test", "error")
	hub := wsHub.NewConnHub(l)
	bookingID := uuid.New()

	if err := hub.Add(bookingID, nil); err == nil {
		t.Fatal("adding a nil connection should fail")
	}
	if n := hub.SubscriberCount(bookingID); n != 0 {
		t.Fatalf("subscriber count = %d, want 0", n)
	}
	if err := hub.Delete(uuid.New()); err == nil {
		t.Fatal("deleting an unknown connection should fail")
	}
}
