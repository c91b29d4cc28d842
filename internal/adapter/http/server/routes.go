package server

import (
	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System health
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)

	// Prometheus metrics endpoint
	a.mux.Handle("GET /metrics", promhttp.Handler())

	// Booking lifecycle
	a.mux.Handle("POST /bookings", a.m.RequireRoles(a.routes.booking.Create, types.RoleRider))                                               // Request a booking
	a.mux.Handle("GET /bookings/active", a.m.RequireRoles(a.routes.booking.Active, types.RoleService))                                       // Active bookings overview
	a.mux.Handle("GET /bookings/{booking_id}", a.m.RequireRoles(a.routes.booking.Get, types.RoleRider, types.RoleDriver, types.RoleService)) // Booking details
	a.mux.Handle("POST /bookings/{booking_id}/cancel", a.m.RequireRoles(a.routes.booking.Cancel, types.RoleRider, types.RoleDriver))         // Cancel a booking
	a.mux.Handle("POST /bookings/{booking_id}/advance", a.m.RequireRoles(a.routes.booking.Advance, types.RoleDriver, types.RoleService))     // Advance the status
	a.mux.HandleFunc("POST /fare/estimate", a.routes.booking.EstimateFare)                                                                   // Quote without booking

	// Drivers and location
	a.mux.HandleFunc("POST /drivers", a.routes.driver.Register)
	a.mux.Handle("POST /drivers/{driver_id}/online", a.m.RequireRoles(a.routes.driver.Online, types.RoleDriver))
	a.mux.Handle("POST /drivers/{driver_id}/offline", a.m.RequireRoles(a.routes.driver.Offline, types.RoleDriver))
	a.mux.Handle("POST /drivers/{driver_id}/location", a.m.RequireRoles(a.routes.driver.ReportLocation, types.RoleDriver))
	a.mux.Handle("GET /drivers/{driver_id}/location", a.m.RequireRoles(a.routes.driver.LastLocation, types.RoleService))

	// WebSocket subscribers authenticate via query token since browsers
	// cannot set headers on the upgrade request.
	a.mux.Handle("GET /ws/bookings/{booking_id}", a.m.RequireRolesQuery(a.routes.stream.Subscribe, types.RoleRider, types.RoleDriver, types.RoleService))
}
