package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information carried through the call chain and
	// attached to every log record emitted with that context.
	LogCtx struct {
		Action    string
		RequestID string
		BookingID string
		DriverID  string
		RiderID   string
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the context key under which LogCtx travels.
var LogCtxKey = &logCtxKeyStruct{}

// WithLogCtx merges the provided LogCtx with any existing one; empty fields
// keep their previous value.
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		if newLc.Action == "" {
			newLc.Action = lc.Action
		}
		if newLc.RequestID == "" {
			newLc.RequestID = lc.RequestID
		}
		if newLc.BookingID == "" {
			newLc.BookingID = lc.BookingID
		}
		if newLc.DriverID == "" {
			newLc.DriverID = lc.DriverID
		}
		if newLc.RiderID == "" {
			newLc.RiderID = lc.RiderID
		}
	}
	return context.WithValue(ctx, LogCtxKey, newLc)
}

// WithAction sets the action field in the log context.
func WithAction(ctx context.Context, action string) context.Context {
	return WithLogCtx(ctx, LogCtx{Action: action})
}

// WithRequestID sets the request id field in the log context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithLogCtx(ctx, LogCtx{RequestID: requestID})
}

// WithBookingID sets the booking id field in the log context.
func WithBookingID(ctx context.Context, bookingID string) context.Context {
	return WithLogCtx(ctx, LogCtx{BookingID: bookingID})
}

// WithDriverID sets the driver id field in the log context.
func WithDriverID(ctx context.Context, driverID string) context.Context {
	return WithLogCtx(ctx, LogCtx{DriverID: driverID})
}

// WithRiderID sets the rider id field in the log context.
func WithRiderID(ctx context.Context, riderID string) context.Context {
	return WithLogCtx(ctx, LogCtx{RiderID: riderID})
}
