package handler

import (
	"context"
	"net/http"

	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/http/handler/dto"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/auth"
	"github.com/Kwendataxi/kwenda-sub010/internal/service/booking"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
	"github.com/Kwendataxi/kwenda-sub010/pkg/validator"
)

type Booking struct {
	service BookingService
	l       logger.Logger
}

type BookingService interface {
	Create(ctx context.Context, cmd booking.CreateCommand) (*models.Booking, error)
	Advance(ctx context.Context, id uuid.UUID, expected, next types.BookingStatus, actor types.Actor, fareOverride *float64) (*models.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, actor types.Actor, reason string) (*models.CancellationRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ActiveBookings(ctx context.Context) ([]models.BookingOverview, error)
	EstimateFare(ctx context.Context, cmd booking.QuoteCommand) (*booking.Quote, error)
}

func NewBooking(service BookingService, l logger.Logger) *Booking {
	return &Booking{
		service: service,
		l:       l,
	}
}

func (h *Booking) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_booking")

	principal := auth.PrincipalFromContext(ctx)
	if principal == nil {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var createReq dto.CreateBookingRequest
	if err := readJSON(w, r, &createReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	createReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	b, err := h.service.Create(ctx, createReq.ToCommand(principal.Subject))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create booking", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"booking": dto.CreateBookingResponse{
			BookingID:            b.ID,
			BookingNumber:        b.BookingNumber,
			Status:               string(b.Status),
			EstimatedFare:        b.EstimatedFare,
			EstimatedDistanceKm:  b.EstimatedDistanceKm,
			EstimatedDurationMin: b.EstimatedDurationMin,
			SurgeMultiplier:      b.SurgeMultiplier,
		},
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "booking created", "booking_id", b.ID, "booking_number", b.BookingNumber)
}

func (h *Booking) Advance(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "advance_booking")

	bookingID, err := uuid.Parse(r.PathValue("booking_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid booking uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid booking uuid format")
		return
	}
	ctx = wrap.WithBookingID(ctx, bookingID.String())

	var advanceReq dto.AdvanceBookingRequest
	if err := readJSON(w, r, &advanceReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	advanceReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	b, err := h.service.Advance(ctx, bookingID,
		types.BookingStatus(advanceReq.ExpectedStatus),
		types.BookingStatus(advanceReq.NextStatus),
		actorFromContext(ctx),
		advanceReq.FinalFare,
	)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to advance booking", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"booking": dto.NewBookingResponse(b)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "booking advanced", "booking_id", b.ID, "status", b.Status)
}

func (h *Booking) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "cancel_booking")

	bookingID, err := uuid.Parse(r.PathValue("booking_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid booking uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid booking uuid format")
		return
	}
	ctx = wrap.WithBookingID(ctx, bookingID.String())

	var cancelReq dto.CancelBookingRequest
	if err := readJSON(w, r, &cancelReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	cancelReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	rec, err := h.service.Cancel(ctx, bookingID, actorFromContext(ctx), cancelReq.Reason)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to cancel booking", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"cancellation": dto.CancelBookingResponse{
			BookingID:           rec.BookingID,
			Status:              string(types.StatusCancelled),
			StateAtCancellation: string(rec.StateAtCancellation),
			CancellationFee:     rec.Fee,
			CancelledAt:         rec.CreatedAt,
		},
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "booking cancelled", "booking_id", rec.BookingID, "fee", rec.Fee)
}

func (h *Booking) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_booking")

	bookingID, err := uuid.Parse(r.PathValue("booking_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid booking uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid booking uuid format")
		return
	}

	b, err := h.service.Get(ctx, bookingID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get booking", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"booking": dto.NewBookingResponse(b)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Booking) Active(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_active_bookings")

	overview, err := h.service.ActiveBookings(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list active bookings", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"count":    len(overview),
		"bookings": overview,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Booking) EstimateFare(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "estimate_fare")

	var estimateReq dto.EstimateFareRequest
	if err := readJSON(w, r, &estimateReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	estimateReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	quote, err := h.service.EstimateFare(ctx, estimateReq.ToCommand())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to estimate fare", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"quote": quote}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// actorFromContext maps the caller's role to the lifecycle actor recorded
// on transitions. Anonymous and service callers both act as the system.
func actorFromContext(ctx context.Context) types.Actor {
	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		return types.ActorSystem
	}
	switch p.Role {
	case types.RoleRider:
		return types.ActorRider
	case types.RoleDriver:
		return types.ActorDriver
	default:
		return types.ActorSystem
	}
}
