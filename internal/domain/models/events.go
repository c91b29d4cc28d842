package models

import (
	"encoding/json"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// OutboundEvent is the fixed shape pushed to the UI/chat/push layers.
// Safe to redeliver: consumers key lifecycle events on
// (booking_id, event_type) and location events on the report timestamp.
type OutboundEvent struct {
	BookingID  uuid.UUID       `json:"booking_id"`
	EventType  types.EventType `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// TransitionPayload is the payload of every lifecycle event.
type TransitionPayload struct {
	From     types.BookingStatus `json:"from"`
	To       types.BookingStatus `json:"to"`
	Actor    types.Actor         `json:"actor"`
	DriverID *uuid.UUID          `json:"driver_id,omitempty"`
}

// LocationPayload is the payload of driver.location events. Stale positions
// are forwarded flagged so consumers can omit live ETA instead of failing.
type LocationPayload struct {
	DriverID       uuid.UUID `json:"driver_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	HeadingDegrees float64   `json:"heading_degrees,omitempty"`
	SpeedKmh       float64   `json:"speed_kmh,omitempty"`
	Stale          bool      `json:"stale,omitempty"`
	EtaMinutes     *int      `json:"eta_minutes,omitempty"`
	ReportedAt     time.Time `json:"reported_at"`
}

// BookingEvent is a persisted lifecycle transition: the audit trail and,
// until published, the relay outbox.
type BookingEvent struct {
	ID          int64
	BookingID   uuid.UUID
	EventType   types.EventType
	Payload     json.RawMessage
	OccurredAt  time.Time
	PublishedAt *time.Time
}

// Outbound converts a stored event to the wire shape.
func (e BookingEvent) Outbound() OutboundEvent {
	return OutboundEvent{
		BookingID:  e.BookingID,
		EventType:  e.EventType,
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt,
	}
}
