package dto

import (
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/booking"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
	"github.com/Kwendataxi/kwenda-sub010/pkg/validator"
)

type CreateBookingRequest struct {
	ServiceClass         string  `json:"service_class"`
	PickupLatitude       float64 `json:"pickup_latitude"`
	PickupLongitude      float64 `json:"pickup_longitude"`
	PickupLabel          string  `json:"pickup_label"`
	DestinationLatitude  float64 `json:"destination_latitude"`
	DestinationLongitude float64 `json:"destination_longitude"`
	DestinationLabel     string  `json:"destination_label"`
	SurgeMultiplier      float64 `json:"surge_multiplier,omitempty"`
}

func (r *CreateBookingRequest) Validate(v *validator.Validator) {
	v.Check(r.PickupLabel != "", "pickup_label", "must be provided")
	v.Check(len(r.PickupLabel) <= 255, "pickup_label", "must not be more than 255 characters long")
	v.Check(r.PickupLatitude >= -90 && r.PickupLatitude <= 90, "pickup_latitude", "must be between -90 and 90")
	v.Check(r.PickupLongitude >= -180 && r.PickupLongitude <= 180, "pickup_longitude", "must be between -180 and 180")

	v.Check(r.DestinationLabel != "", "destination_label", "must be provided")
	v.Check(len(r.DestinationLabel) <= 255, "destination_label", "must not be more than 255 characters long")
	v.Check(r.DestinationLatitude >= -90 && r.DestinationLatitude <= 90, "destination_latitude", "must be between -90 and 90")
	v.Check(r.DestinationLongitude >= -180 && r.DestinationLongitude <= 180, "destination_longitude", "must be between -180 and 180")

	v.Check(r.ServiceClass != "", "service_class", "must be provided")
	if r.ServiceClass != "" {
		v.Check(validator.PermittedValue(r.ServiceClass, "STANDARD", "EXPRESS", "FREIGHT"),
			"service_class", "must be one of STANDARD, EXPRESS, or FREIGHT")
	}

	v.Check(r.SurgeMultiplier == 0 || r.SurgeMultiplier >= 1, "surge_multiplier", "must be at least 1")
}

func (r *CreateBookingRequest) ToCommand(riderID uuid.UUID) booking.CreateCommand {
	return booking.CreateCommand{
		RiderID:      riderID,
		ServiceClass: types.ServiceClass(r.ServiceClass),
		Pickup: models.Location{
			Latitude:  r.PickupLatitude,
			Longitude: r.PickupLongitude,
			Label:     r.PickupLabel,
		},
		Destination: models.Location{
			Latitude:  r.DestinationLatitude,
			Longitude: r.DestinationLongitude,
			Label:     r.DestinationLabel,
		},
		SurgeMultiplier: r.SurgeMultiplier,
	}
}

type CreateBookingResponse struct {
	BookingID            uuid.UUID `json:"booking_id"`
	BookingNumber        string    `json:"booking_number"`
	Status               string    `json:"status"`
	EstimatedFare        float64   `json:"estimated_fare"`
	EstimatedDistanceKm  float64   `json:"estimated_distance_km"`
	EstimatedDurationMin int       `json:"estimated_duration_minutes"`
	SurgeMultiplier      float64   `json:"surge_multiplier"`
}

// BookingResponse is the full booking shape served by the read endpoint.
type BookingResponse struct {
	BookingID     uuid.UUID  `json:"booking_id"`
	BookingNumber string     `json:"booking_number"`
	RiderID       uuid.UUID  `json:"rider_id"`
	DriverID      *uuid.UUID `json:"driver_id,omitempty"`
	ServiceClass  string     `json:"service_class"`
	Status        string     `json:"status"`

	PickupLatitude       float64 `json:"pickup_latitude"`
	PickupLongitude      float64 `json:"pickup_longitude"`
	PickupLabel          string  `json:"pickup_label"`
	DestinationLatitude  float64 `json:"destination_latitude"`
	DestinationLongitude float64 `json:"destination_longitude"`
	DestinationLabel     string  `json:"destination_label"`

	EstimatedFare        float64  `json:"estimated_fare"`
	FinalFare            *float64 `json:"final_fare,omitempty"`
	EstimatedDistanceKm  float64  `json:"estimated_distance_km"`
	EstimatedDurationMin int      `json:"estimated_duration_minutes"`
	SurgeMultiplier      float64  `json:"surge_multiplier"`

	CancellationReason *string `json:"cancellation_reason,omitempty"`
	CancelledBy        *string `json:"cancelled_by,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func NewBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		BookingID:            b.ID,
		BookingNumber:        b.BookingNumber,
		RiderID:              b.RiderID,
		DriverID:             b.DriverID,
		ServiceClass:         string(b.ServiceClass),
		Status:               string(b.Status),
		PickupLatitude:       b.Pickup.Latitude,
		PickupLongitude:      b.Pickup.Longitude,
		PickupLabel:          b.Pickup.Label,
		DestinationLatitude:  b.Destination.Latitude,
		DestinationLongitude: b.Destination.Longitude,
		DestinationLabel:     b.Destination.Label,
		EstimatedFare:        b.EstimatedFare,
		FinalFare:            b.FinalFare,
		EstimatedDistanceKm:  b.EstimatedDistanceKm,
		EstimatedDurationMin: b.EstimatedDurationMin,
		SurgeMultiplier:      b.SurgeMultiplier,
		CancellationReason:   b.CancellationReason,
		CreatedAt:            b.CreatedAt,
		AssignedAt:           b.AssignedAt,
		PickedUpAt:           b.PickedUpAt,
		CompletedAt:          b.CompletedAt,
		CancelledAt:          b.CancelledAt,
	}
	if b.CancelledBy != nil {
		by := string(*b.CancelledBy)
		resp.CancelledBy = &by
	}
	return resp
}

type AdvanceBookingRequest struct {
	ExpectedStatus string   `json:"expected_status"`
	NextStatus     string   `json:"next_status"`
	FinalFare      *float64 `json:"final_fare,omitempty"`
}

var knownStatuses = []string{
	"REQUESTED", "CONFIRMED", "DRIVER_ASSIGNED", "EN_ROUTE", "PICKED_UP",
	"IN_PROGRESS", "COMPLETED", "CANCELLED", "NO_DRIVER_AVAILABLE", "NO_SHOW",
}

func (r *AdvanceBookingRequest) Validate(v *validator.Validator) {
	v.Check(r.ExpectedStatus != "", "expected_status", "must be provided")
	if r.ExpectedStatus != "" {
		v.Check(validator.PermittedValue(r.ExpectedStatus, knownStatuses...), "expected_status", "is not a known status")
	}
	v.Check(r.NextStatus != "", "next_status", "must be provided")
	if r.NextStatus != "" {
		v.Check(validator.PermittedValue(r.NextStatus, knownStatuses...), "next_status", "is not a known status")
	}
	if r.FinalFare != nil {
		v.Check(*r.FinalFare >= 0, "final_fare", "must not be negative")
	}
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelBookingRequest) Validate(v *validator.Validator) {
	v.Check(r.Reason != "", "reason", "must be provided")
	v.Check(len(r.Reason) <= 500, "reason", "must not be more than 500 characters long")
}

type CancelBookingResponse struct {
	BookingID           uuid.UUID `json:"booking_id"`
	Status              string    `json:"status"`
	StateAtCancellation string    `json:"state_at_cancellation"`
	CancellationFee     float64   `json:"cancellation_fee"`
	CancelledAt         time.Time `json:"cancelled_at"`
}

type EstimateFareRequest struct {
	ServiceClass         string  `json:"service_class"`
	PickupLatitude       float64 `json:"pickup_latitude"`
	PickupLongitude      float64 `json:"pickup_longitude"`
	DestinationLatitude  float64 `json:"destination_latitude"`
	DestinationLongitude float64 `json:"destination_longitude"`
	SurgeMultiplier      float64 `json:"surge_multiplier,omitempty"`
}

func (r *EstimateFareRequest) Validate(v *validator.Validator) {
	v.Check(r.ServiceClass != "", "service_class", "must be provided")
	if r.ServiceClass != "" {
		v.Check(validator.PermittedValue(r.ServiceClass, "STANDARD", "EXPRESS", "FREIGHT"),
			"service_class", "must be one of STANDARD, EXPRESS, or FREIGHT")
	}
	v.Check(r.PickupLatitude >= -90 && r.PickupLatitude <= 90, "pickup_latitude", "must be between -90 and 90")
	v.Check(r.PickupLongitude >= -180 && r.PickupLongitude <= 180, "pickup_longitude", "must be between -180 and 180")
	v.Check(r.DestinationLatitude >= -90 && r.DestinationLatitude <= 90, "destination_latitude", "must be between -90 and 90")
	v.Check(r.DestinationLongitude >= -180 && r.DestinationLongitude <= 180, "destination_longitude", "must be between -180 and 180")
	v.Check(r.SurgeMultiplier == 0 || r.SurgeMultiplier >= 1, "surge_multiplier", "must be at least 1")
}

func (r *EstimateFareRequest) ToCommand() booking.QuoteCommand {
	return booking.QuoteCommand{
		ServiceClass:    types.ServiceClass(r.ServiceClass),
		Pickup:          models.Location{Latitude: r.PickupLatitude, Longitude: r.PickupLongitude},
		Destination:     models.Location{Latitude: r.DestinationLatitude, Longitude: r.DestinationLongitude},
		SurgeMultiplier: r.SurgeMultiplier,
	}
}
