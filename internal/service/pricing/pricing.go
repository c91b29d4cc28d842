package pricing

import (
	"math"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
)

// Per-class tariffs. Fares are in the smallest currency unit.
const (
	baseFareStandard = 500.0
	baseFareExpress  = 800.0
	baseFareFreight  = 1200.0

	perKmStandard = 100.0
	perKmExpress  = 140.0
	perKmFreight  = 200.0

	// DefaultCancellationFeePercent is charged when a driver has already
	// committed to the booking.
	DefaultCancellationFeePercent = 10.0
)

// Engine computes fares and cancellation fees as pure functions of trip
// parameters and lifecycle state. It holds no references to lifecycle or
// dispatch state.
type Engine struct {
	cancellationFeePercent float64
}

func NewEngine(cancellationFeePercent float64) *Engine {
	if cancellationFeePercent <= 0 {
		cancellationFeePercent = DefaultCancellationFeePercent
	}
	return &Engine{cancellationFeePercent: cancellationFeePercent}
}

// Estimate returns base_fare + distance_km * per_km_rate * surge, rounded
// to the nearest whole unit. Surge below 1 is an input error caught by the
// caller; it is clamped here so the function stays total.
func (e *Engine) Estimate(class types.ServiceClass, distanceKm, surge float64) float64 {
	if surge < 1 {
		surge = 1
	}
	if distanceKm < 0 {
		distanceKm = 0
	}

	base, perKm := tariff(class)
	return math.Round(base + distanceKm*perKm*surge)
}

// Final returns the fare charged at completion: the estimate unless an
// override is supplied (route deviation, manual adjustment).
func (e *Engine) Final(estimated float64, override *float64) float64 {
	if override != nil {
		return *override
	}
	return estimated
}

// CancellationFee implements the fee schedule:
// nothing before a driver commits, a fixed percentage of the estimate once
// one has (driver_assigned or en_route). Terminal or in-trip states never
// reach this function through the lifecycle, which rejects the cancel first.
func (e *Engine) CancellationFee(statusAtCancellation types.BookingStatus, estimatedFare float64) float64 {
	switch statusAtCancellation {
	case types.StatusRequested, types.StatusConfirmed:
		return 0
	case types.StatusDriverAssigned, types.StatusEnRoute:
		return math.Round(estimatedFare * e.cancellationFeePercent / 100)
	default:
		return 0
	}
}

func tariff(class types.ServiceClass) (base, perKm float64) {
	switch class {
	case types.ClassExpress:
		return baseFareExpress, perKmExpress
	case types.ClassFreight:
		return baseFareFreight, perKmFreight
	default:
		return baseFareStandard, perKmStandard
	}
}
