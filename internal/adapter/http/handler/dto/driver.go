package dto

import (
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
	"github.com/Kwendataxi/kwenda-sub010/pkg/validator"
)

type RegisterDriverRequest struct {
	Name         string  `json:"name"`
	ServiceClass string  `json:"service_class"`
	Rating       float64 `json:"rating"`
}

func (r *RegisterDriverRequest) Validate(v *validator.Validator) {
	v.Check(r.Name != "", "name", "must be provided")
	v.Check(len(r.Name) <= 255, "name", "must not be more than 255 characters long")
	v.Check(r.ServiceClass != "", "service_class", "must be provided")
	if r.ServiceClass != "" {
		v.Check(validator.PermittedValue(r.ServiceClass, "STANDARD", "EXPRESS", "FREIGHT"),
			"service_class", "must be one of STANDARD, EXPRESS, or FREIGHT")
	}
	v.Check(r.Rating >= 0 && r.Rating <= 5, "rating", "must be between 0 and 5")
}

func (r *RegisterDriverRequest) ToModel(driverID uuid.UUID) models.Driver {
	return models.Driver{
		ID:           driverID,
		Name:         r.Name,
		ServiceClass: types.ServiceClass(r.ServiceClass),
		Rating:       r.Rating,
		Status:       types.DriverOffline,
	}
}

type LocationReportRequest struct {
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	HeadingDegrees float64   `json:"heading_degrees,omitempty"`
	SpeedKmh       float64   `json:"speed_kmh,omitempty"`
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	ReportedAt     time.Time `json:"reported_at"`
}

func (r *LocationReportRequest) Validate(v *validator.Validator) {
	v.Check(r.Latitude != nil, "latitude", "must be provided")
	if r.Latitude != nil {
		v.Check(*r.Latitude >= -90 && *r.Latitude <= 90, "latitude", "must be between -90 and 90")
	}
	v.Check(r.Longitude != nil, "longitude", "must be provided")
	if r.Longitude != nil {
		v.Check(*r.Longitude >= -180 && *r.Longitude <= 180, "longitude", "must be between -180 and 180")
	}
	v.Check(r.HeadingDegrees >= 0 && r.HeadingDegrees < 360, "heading_degrees", "must be between 0 and 360")
	v.Check(r.SpeedKmh >= 0, "speed_kmh", "must not be negative")
	v.Check(r.AccuracyMeters >= 0, "accuracy_meters", "must not be negative")
	v.Check(!r.ReportedAt.IsZero(), "reported_at", "must be provided")
}

func (r *LocationReportRequest) ToModel(driverID uuid.UUID) models.DriverLocation {
	loc := models.DriverLocation{
		DriverID:       driverID,
		HeadingDegrees: r.HeadingDegrees,
		SpeedKmh:       r.SpeedKmh,
		AccuracyMeters: r.AccuracyMeters,
		ReportedAt:     r.ReportedAt,
	}
	if r.Latitude != nil {
		loc.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		loc.Longitude = *r.Longitude
	}
	return loc
}
