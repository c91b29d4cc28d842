package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/http/handler/dto"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
	"github.com/Kwendataxi/kwenda-sub010/pkg/validator"
)

type Driver struct {
	service DriverService
	l       logger.Logger
}

type DriverService interface {
	Register(ctx context.Context, d models.Driver) error
	Online(ctx context.Context, driverID uuid.UUID) error
	Offline(ctx context.Context, driverID uuid.UUID) error
	Report(ctx context.Context, report models.DriverLocation) error
	Last(ctx context.Context, driverID uuid.UUID) (models.DriverLocation, error)
}

func NewDriver(service DriverService, l logger.Logger) *Driver {
	return &Driver{
		service: service,
		l:       l,
	}
}

func (h *Driver) Register(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "register_driver")

	var registerReq dto.RegisterDriverRequest
	if err := readJSON(w, r, &registerReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	registerReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	driver := registerReq.ToModel(uuid.New())
	if err := h.service.Register(ctx, driver); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register driver", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"driver_id":     driver.ID,
		"service_class": driver.ServiceClass,
		"status":        driver.Status,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "driver registered", "driver_id", driver.ID)
}

func (h *Driver) Online(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_driver_online")

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid driver uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid driver uuid format")
		return
	}

	if err := h.service.Online(ctx, driverID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver online", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"driver_id": driverID, "status": "AVAILABLE"}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "driver online", "driver_id", driverID)
}

func (h *Driver) Offline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_driver_offline")

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid driver uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid driver uuid format")
		return
	}

	if err := h.service.Offline(ctx, driverID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver offline", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"driver_id": driverID, "status": "OFFLINE"}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "driver offline", "driver_id", driverID)
}

func (h *Driver) ReportLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "report_location")

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid driver uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid driver uuid format")
		return
	}

	var reportReq dto.LocationReportRequest
	if err := readJSON(w, r, &reportReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	reportReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	if err := h.service.Report(ctx, reportReq.ToModel(driverID)); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to process location report", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusAccepted, envelope{"driver_id": driverID}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Driver) LastLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_last_location")

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid driver uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid driver uuid format")
		return
	}

	loc, err := h.service.Last(ctx, driverID)
	stale := false
	switch {
	case errors.Is(err, types.ErrStaleLocation):
		// The last known position is still served, marked stale.
		stale = true
	case err != nil:
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get last location", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"location": loc, "stale": stale}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}
