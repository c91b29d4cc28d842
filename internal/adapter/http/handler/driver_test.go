package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/http/handler"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/models"
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

type stubDriverService struct {
	loc models.DriverLocation
	err error
}

func (s *stubDriverService) Register(context.Context, models.Driver) error       { return nil }
func (s *stubDriverService) Online(context.Context, uuid.UUID) error             { return nil }
func (s *stubDriverService) Offline(context.Context, uuid.UUID) error            { return nil }
func (s *stubDriverService) Report(context.Context, models.DriverLocation) error { return nil }

func (s *stubDriverService) Last(context.Context, uuid.UUID) (models.DriverLocation, error) {
	return s.loc, s.err
}

func lastLocationRequest(t *testing.T, svc *stubDriverService, driverID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	h := handler.NewDriver(svc, logger.InitLogger("handler-test", "error"))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /drivers/{driver_id}/location", h.LastLocation)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/drivers/"+driverID.String()+"/location", nil)
	mux.ServeHTTP(rec, req)
	return rec
}

// A driver whose last report has aged out is still locatable: the last
// known position is served with the stale marker set.
func TestLastLocation_ServesStaleWithFlag(t *testing.T) {
	driverID := uuid.New()
	loc := models.DriverLocation{
		DriverID:   driverID,
		Latitude:   -1.2864,
		Longitude:  36.8172,
		Available:  true,
		ReportedAt: time.Now().Add(-time.Hour),
	}
	rec := lastLocationRequest(t, &stubDriverService{loc: loc, err: types.ErrStaleLocation}, driverID)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Location models.DriverLocation `json:"location"`
		Stale    bool                  `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Stale {
		t.Error("stale flag not set")
	}
	if body.Location.DriverID != driverID {
		t.Errorf("location driver = %s, want %s", body.Location.DriverID, driverID)
	}
}

func TestLastLocation_FreshReportNotFlagged(t *testing.T) {
	driverID := uuid.New()
	loc := models.DriverLocation{DriverID: driverID, ReportedAt: time.Now()}
	rec := lastLocationRequest(t, &stubDriverService{loc: loc}, driverID)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Stale bool `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Stale {
		t.Error("fresh report marked stale")
	}
}

func TestLastLocation_UnknownDriverNotFound(t *testing.T) {
	rec := lastLocationRequest(t, &stubDriverService{err: types.ErrDriverNotFound}, uuid.New())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
