package models

import (
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// Driver is the dispatch-relevant slice of a driver profile.
type Driver struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	ServiceClass types.ServiceClass `json:"service_class"`
	Rating       float64            `json:"rating"`
	Status       types.DriverStatus `json:"status"`
}

// DriverLocation is the latest reported position of a driver. Upserted on
// every report; logically stale once ReportedAt falls outside the freshness
// window, never hard-deleted while the session is live.
type DriverLocation struct {
	DriverID       uuid.UUID `json:"driver_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	HeadingDegrees float64   `json:"heading_degrees"`
	SpeedKmh       float64   `json:"speed_kmh"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	Available      bool      `json:"available"`
	ReportedAt     time.Time `json:"reported_at"`
}

// Candidate pairs a driver with their distance from a pickup point during
// dispatch ranking.
type Candidate struct {
	Driver     Driver
	Location   DriverLocation
	DistanceKm float64
	EtaMinutes int
}
