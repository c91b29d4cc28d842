package geo

import (
	"math"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
)

const (
	EarthRadiusKm = 6371.0

	// Assumed average speeds per service class, km/h.
	DefaultSpeedStandard = 30.0
	DefaultSpeedExpress  = 40.0
	DefaultSpeedFreight  = 25.0
)

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineDistance calculates the great-circle distance in kilometres
// between two geographic points.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lon1Rad := degreesToRadians(lon1)
	lat2Rad := degreesToRadians(lat2)
	lon2Rad := degreesToRadians(lon2)

	deltaLat := lat2Rad - lat1Rad
	deltaLon := lon2Rad - lon1Rad

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Pow(math.Sin(deltaLon/2), 2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// EtaMinutes derives an arrival estimate from distance and the assumed
// average speed of the service class, rounded up to whole minutes.
func EtaMinutes(distanceKm float64, class types.ServiceClass) int {
	if distanceKm <= 0 {
		return 0
	}

	var speedKmh float64
	switch class {
	case types.ClassExpress:
		speedKmh = DefaultSpeedExpress
	case types.ClassFreight:
		speedKmh = DefaultSpeedFreight
	default:
		speedKmh = DefaultSpeedStandard
	}

	return int(math.Ceil(distanceKm / speedKmh * 60))
}
