package booking

import "github.com/Kwendataxi/kwenda-sub010/internal/domain/types"

// allowedTransitions is the state diagram as code. Forward progress is
// monotonic; cancellation is reachable only before pickup; the two
// no-outcome terminals close the requested/confirmed and en_route branches.
var allowedTransitions = map[types.BookingStatus][]types.BookingStatus{
	types.StatusRequested: {
		types.StatusConfirmed,
		types.StatusCancelled,
		types.StatusNoDriverAvailable,
	},
	types.StatusConfirmed: {
		types.StatusDriverAssigned,
		types.StatusCancelled,
		types.StatusNoDriverAvailable,
	},
	types.StatusDriverAssigned: {
		types.StatusEnRoute,
		types.StatusCancelled,
	},
	types.StatusEnRoute: {
		types.StatusPickedUp,
		types.StatusCancelled,
		types.StatusNoShow,
	},
	types.StatusPickedUp: {
		types.StatusInProgress,
	},
	types.StatusInProgress: {
		types.StatusCompleted,
	},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to types.BookingStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// cancellableStatuses are the only states CancelBooking accepts.
func cancellable(s types.BookingStatus) bool {
	switch s {
	case types.StatusRequested, types.StatusConfirmed, types.StatusDriverAssigned, types.StatusEnRoute:
		return true
	default:
		return false
	}
}
