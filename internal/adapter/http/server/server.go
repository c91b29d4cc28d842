package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Kwendataxi/kwenda-sub010/config"
	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/http/handler"
	"github.com/Kwendataxi/kwenda-sub010/internal/adapter/http/middleware"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	wsHub "github.com/Kwendataxi/kwenda-sub010/pkg/wsHub"
)

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	booking *handler.Booking
	driver  *handler.Driver
	stream  *handler.Stream
	health  *handler.Health
}

func New(
	cfg config.Config,
	bookingService handler.BookingService,
	driverService handler.DriverService,
	hub *wsHub.ConnectionHub,
	tokens middleware.TokenVerifier,
	log logger.Logger,
) (*API, error) {
	if tokens == nil {
		return nil, errors.New("token verifier is required")
	}

	routes := &handlers{
		booking: handler.NewBooking(bookingService, log),
		driver:  handler.NewDriver(driverService, log),
		stream:  handler.NewStream(hub, log),
		health:  handler.NewHealth("dispatch", log),
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(tokens, log),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.HTTP.Port),
		cfg:    cfg,
		log:    log,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(a.m.Logging(a.m.Auth(a.mux)))))
}
