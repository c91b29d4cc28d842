package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/metrics"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
	wsHub "github.com/Kwendataxi/kwenda-sub010/pkg/wsHub"
)

var upgrader = websocket.Upgrader{}

type Stream struct {
	hub *wsHub.ConnectionHub
	l   logger.Logger
}

func NewStream(hub *wsHub.ConnectionHub, l logger.Logger) *Stream {
	return &Stream{
		hub: hub,
		l:   l,
	}
}

// Subscribe upgrades the request and attaches the client to the booking's
// broadcast group. The connection stays registered until the peer closes
// it or a write fails.
func (h *Stream) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "subscribe_booking_events")

	bookingID, err := uuid.Parse(r.PathValue("booking_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid booking uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid booking uuid format")
		return
	}
	ctx = wrap.WithBookingID(ctx, bookingID.String())

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "websocket upgrade failed", err)
		return
	}

	conn := wsHub.NewConn(ctx, uuid.New(), wsConn)
	if err := h.hub.Add(bookingID, conn); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register subscriber", err)
		conn.Close()
		return
	}
	metrics.WebSocketConnectionsGauge.Inc()
	h.l.Info(ctx, "subscriber attached", "conn_id", conn.ID())

	defer func() {
		h.hub.Delete(conn.ID())
		metrics.WebSocketConnectionsGauge.Dec()
		h.l.Info(ctx, "subscriber detached", "conn_id", conn.ID())
	}()

	// Subscribers are read-only; the listen loop only drains control
	// frames and returns when the peer goes away.
	if err := conn.Listen(func(msg map[string]any) error { return nil }); err != nil {
		h.l.Debug(ctx, "subscriber connection closed", "reason", err.Error())
	}
}
