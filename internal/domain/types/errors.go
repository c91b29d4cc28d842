package types

import "errors"

var (
	// ErrInvalidTransition — the requested status is not a legal successor of
	// the expected status. Surfaced to the caller, never retried.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStaleState — a concurrent actor won the compare-and-set. The caller
	// must re-read the booking before retrying.
	ErrStaleState = errors.New("booking state is stale")

	// ErrInvalidState — the operation is not permitted in the booking's
	// current state (e.g. cancelling a completed booking).
	ErrInvalidState = errors.New("operation not permitted in current state")

	// ErrNoDriverAvailable — dispatch exhausted every search round.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrReservationConflict — the driver already holds a reservation.
	// Internal to dispatch; the matcher moves on to the next candidate.
	ErrReservationConflict = errors.New("driver already reserved")

	// ErrStaleLocation — the driver's last report is older than the
	// freshness window. Informational; consumers degrade, not fail.
	ErrStaleLocation = errors.New("driver location is stale")

	ErrDuplicateRequest = errors.New("duplicate booking request")
	ErrDriverOffline    = errors.New("driver is offline")

	ErrBookingNotFound = errors.New("booking not found")
	ErrDriverNotFound  = errors.New("driver not found")
	ErrNotFound        = errors.New("requested item not found")

	ErrInvalidSurge        = errors.New("surge multiplier must be >= 1")
	ErrInvalidServiceClass = errors.New("unknown service class")
	ErrInvalidInput        = errors.New("invalid input")
)
