package types

// EventType names a meaningful state change pushed to the outside world.
// Exactly one outbound notification is emitted per lifecycle event type for
// a given booking; location updates repeat and are deduplicated downstream
// by report timestamp.
type EventType string

const (
	EventBookingRequested  EventType = "booking.requested"
	EventBookingConfirmed  EventType = "booking.confirmed"
	EventDriverAssigned    EventType = "booking.driver_assigned"
	EventDriverEnRoute     EventType = "booking.en_route"
	EventRiderPickedUp     EventType = "booking.picked_up"
	EventTripInProgress    EventType = "booking.in_progress"
	EventBookingCompleted  EventType = "booking.completed"
	EventBookingCancelled  EventType = "booking.cancelled"
	EventNoDriverAvailable EventType = "booking.no_driver_available"
	EventRiderNoShow       EventType = "booking.no_show"

	EventDriverLocation EventType = "driver.location"
)

// eventForStatus maps the status a booking just entered to its event type.
var eventForStatus = map[BookingStatus]EventType{
	StatusRequested:         EventBookingRequested,
	StatusConfirmed:         EventBookingConfirmed,
	StatusDriverAssigned:    EventDriverAssigned,
	StatusEnRoute:           EventDriverEnRoute,
	StatusPickedUp:          EventRiderPickedUp,
	StatusInProgress:        EventTripInProgress,
	StatusCompleted:         EventBookingCompleted,
	StatusCancelled:         EventBookingCancelled,
	StatusNoDriverAvailable: EventNoDriverAvailable,
	StatusNoShow:            EventRiderNoShow,
}

// EventForStatus returns the event type emitted when a booking enters the
// given status. Every lifecycle status has a mapped event.
func EventForStatus(s BookingStatus) EventType {
	return eventForStatus[s]
}

// IsLifecycleEvent reports whether the event describes a status transition
// (as opposed to a repeating location update).
func (e EventType) IsLifecycleEvent() bool {
	return e != EventDriverLocation
}
