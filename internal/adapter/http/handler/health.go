package handler

import (
	"net/http"

	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
)

type Health struct {
	serviceName string
	l           logger.Logger
}

func NewHealth(serviceName string, l logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		l:           l,
	}
}

// HealthCheck - returns system information.
func (h *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	response := envelope{
		"status": "available",
		"system_info": map[string]string{
			"service-name": h.serviceName,
		},
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "healthcheck", err)
		return
	}
}
