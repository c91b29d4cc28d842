package types_test

import (
	"testing"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
)

// Every lifecycle status must map to an event, since transitions look the
// event up without checking for a miss.
func TestEventForStatus_CoversEveryStatus(t *testing.T) {
	statuses := []types.BookingStatus{
		types.StatusRequested,
		types.StatusConfirmed,
		types.StatusDriverAssigned,
		types.StatusEnRoute,
		types.StatusPickedUp,
		types.StatusInProgress,
		types.StatusCompleted,
		types.StatusCancelled,
		types.StatusNoDriverAvailable,
		types.StatusNoShow,
	}
	for _, s := range statuses {
		e := types.EventForStatus(s)
		if e == "" {
			t.Errorf("no event mapped for status %s", s)
			continue
		}
		if !e.IsLifecycleEvent() {
			t.Errorf("event %s for status %s is not a lifecycle event", e, s)
		}
	}
}

func TestEventForStatus_KnownMappings(t *testing.T) {
	if got := types.EventForStatus(types.StatusConfirmed); got != types.EventBookingConfirmed {
		t.Errorf("confirmed maps to %s, want %s", got, types.EventBookingConfirmed)
	}
	if got := types.EventForStatus(types.StatusNoShow); got != types.EventRiderNoShow {
		t.Errorf("no-show maps to %s, want %s", got, types.EventRiderNoShow)
	}
}
