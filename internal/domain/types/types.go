package types

// BookingStatus is the lifecycle state of a booking. Transitions between
// statuses are gated by the booking service; nothing else mutates them.
type BookingStatus string

const (
	StatusRequested         BookingStatus = "REQUESTED"
	StatusConfirmed         BookingStatus = "CONFIRMED"
	StatusDriverAssigned    BookingStatus = "DRIVER_ASSIGNED"
	StatusEnRoute           BookingStatus = "EN_ROUTE"
	StatusPickedUp          BookingStatus = "PICKED_UP"
	StatusInProgress        BookingStatus = "IN_PROGRESS"
	StatusCompleted         BookingStatus = "COMPLETED"
	StatusCancelled         BookingStatus = "CANCELLED"
	StatusNoDriverAvailable BookingStatus = "NO_DRIVER_AVAILABLE"
	StatusNoShow            BookingStatus = "NO_SHOW"
)

func (s BookingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition may leave the status.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoDriverAvailable, StatusNoShow:
		return true
	default:
		return false
	}
}

// IsActive reports whether a driver is currently engaged with the booking.
// Location updates are fanned out only while the booking is active.
func (s BookingStatus) IsActive() bool {
	switch s {
	case StatusDriverAssigned, StatusEnRoute, StatusPickedUp, StatusInProgress:
		return true
	default:
		return false
	}
}

// RequiresDriver reports whether the status implies an assigned driver.
// Invariant: booking.DriverID is set if and only if this returns true.
func (s BookingStatus) RequiresDriver() bool {
	switch s {
	case StatusDriverAssigned, StatusEnRoute, StatusPickedUp, StatusInProgress,
		StatusCompleted, StatusNoShow:
		return true
	default:
		return false
	}
}

// ServiceClass is the requested vehicle/delivery category.
type ServiceClass string

const (
	ClassStandard ServiceClass = "STANDARD"
	ClassExpress  ServiceClass = "EXPRESS"
	ClassFreight  ServiceClass = "FREIGHT"
)

func (c ServiceClass) Valid() bool {
	switch c {
	case ClassStandard, ClassExpress, ClassFreight:
		return true
	default:
		return false
	}
}

// DriverStatus reflects driver availability for dispatch.
type DriverStatus string

const (
	DriverOffline   DriverStatus = "OFFLINE"
	DriverAvailable DriverStatus = "AVAILABLE"
	DriverBusy      DriverStatus = "BUSY"
)

// Actor identifies who triggered a lifecycle mutation.
type Actor string

const (
	ActorRider  Actor = "rider"
	ActorDriver Actor = "driver"
	ActorSystem Actor = "system"
)

func (a Actor) Valid() bool {
	switch a {
	case ActorRider, ActorDriver, ActorSystem:
		return true
	default:
		return false
	}
}

// Role is carried in JWT claims and checked by the HTTP middleware.
type Role string

const (
	RoleRider   Role = "RIDER"
	RoleDriver  Role = "DRIVER"
	RoleService Role = "SERVICE"
)

func (r Role) String() string {
	return string(r)
}
