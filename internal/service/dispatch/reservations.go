package dispatch

import (
	"sync"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

// Registry holds the transient dispatch reservations. A driver may hold at
// most one reservation at a time; claiming and releasing are the only
// mutations and both are atomic with respect to concurrent matching.
type Registry struct {
	mu       sync.Mutex
	byDriver map[uuid.UUID]uuid.UUID // driver id -> booking id
}

func NewRegistry() *Registry {
	return &Registry{byDriver: make(map[uuid.UUID]uuid.UUID)}
}

// Reserve claims the driver for the booking. Returns
// types.ErrReservationConflict if the driver already holds a reservation.
func (r *Registry) Reserve(driverID, bookingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byDriver[driverID]; taken {
		return types.ErrReservationConflict
	}
	r.byDriver[driverID] = bookingID
	return nil
}

// Release frees the driver's reservation. Releasing an unreserved driver is
// a no-op so terminal transitions can be retried safely.
func (r *Registry) Release(driverID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byDriver, driverID)
}

// Holder returns the booking the driver is reserved for, if any.
func (r *Registry) Holder(driverID uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bookingID, ok := r.byDriver[driverID]
	return bookingID, ok
}

// ActiveCount returns the number of live reservations.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byDriver)
}
