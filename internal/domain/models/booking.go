package models

import (
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// Booking is one transport or delivery engagement from request to
// completion or cancellation. Mutated only through lifecycle transitions;
// retained indefinitely for audit.
type Booking struct {
	ID            uuid.UUID
	BookingNumber string
	RiderID       uuid.UUID
	DriverID      *uuid.UUID
	ServiceClass  types.ServiceClass
	Status        types.BookingStatus

	Pickup      Location
	Destination Location

	EstimatedFare        float64
	FinalFare            *float64
	EstimatedDistanceKm  float64
	EstimatedDurationMin int
	SurgeMultiplier      float64

	CancellationReason *string
	CancelledBy        *types.Actor

	CreatedAt   time.Time
	AssignedAt  *time.Time
	PickedUpAt  *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// CancellationRecord captures the economics of a cancellation. Created once,
// immutable afterwards.
type CancellationRecord struct {
	BookingID           uuid.UUID           `json:"booking_id"`
	Actor               types.Actor         `json:"actor"`
	Reason              string              `json:"reason"`
	StateAtCancellation types.BookingStatus `json:"state_at_cancellation"`
	Fee                 float64             `json:"fee"`
	CreatedAt           time.Time           `json:"created_at"`
}

// BookingOverview is the reduced shape served by the active-bookings
// read endpoint.
type BookingOverview struct {
	ID            uuid.UUID           `json:"booking_id"`
	BookingNumber string              `json:"booking_number"`
	Status        types.BookingStatus `json:"status"`
	RiderID       uuid.UUID           `json:"rider_id"`
	DriverID      *uuid.UUID          `json:"driver_id,omitempty"`
	PickupLabel   string              `json:"pickup_label"`
	DestLabel     string              `json:"destination_label"`
	CreatedAt     time.Time           `json:"created_at"`
}
