// Package stream bridges outbound events onto the websocket hub. It is
// both a relay sink for lifecycle events and the fanout target for live
// driver positions.
package stream

import (
	"context"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	wsHub "github.com/Kwendataxi/kwenda-sub010/pkg/wsHub"
)

type HubSink struct {
	hub *wsHub.ConnectionHub
}

func NewHubSink(hub *wsHub.ConnectionHub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "websocket" }

// Publish delivers to whoever is watching the booking right now. A
// booking without subscribers is not an error; the audit trail is the
// durable record, the socket is best effort.
func (s *HubSink) Publish(_ context.Context, ev models.OutboundEvent) error {
	s.hub.Broadcast(ev.BookingID, ev)
	return nil
}

func (s *HubSink) Broadcast(_ context.Context, ev models.OutboundEvent) {
	s.hub.Broadcast(ev.BookingID, ev)
}
