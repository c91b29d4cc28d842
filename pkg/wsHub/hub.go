package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
	wrap "github.com/Kwendataxi/kwenda-sub010/pkg/logger/wrapper"
	"github.com/Kwendataxi/kwenda-sub010/pkg/uuid"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub tracks websocket subscribers grouped by the booking they
// watch. Fan-out is strictly per-group: a message for one booking never
// reaches subscribers of another.
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn              // connection id -> conn
	groups  map[uuid.UUID]map[uuid.UUID]bool // booking id -> connection ids
	byConn  map[uuid.UUID]uuid.UUID          // connection id -> booking id
	l       logger.Logger
	mu      sync.Mutex
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		groups:  make(map[uuid.UUID]map[uuid.UUID]bool),
		byConn:  make(map[uuid.UUID]uuid.UUID),
		l:       l,
	}
}

// Add registers a connection as a subscriber of the given booking.
func (h *ConnectionHub) Add(bookingID uuid.UUID, newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[newConn.ID()] = newConn
	if h.groups[bookingID] == nil {
		h.groups[bookingID] = make(map[uuid.UUID]bool)
	}
	h.groups[bookingID][newConn.ID()] = true
	h.byConn[newConn.ID()] = bookingID

	return nil
}

// Delete removes and closes a connection.
func (h *ConnectionHub) Delete(connID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "ws_connection_delete")

	conn, ok := h.clients[connID]
	if !ok {
		return ErrConnIsNotFound
	}

	if err := conn.Close(); err != nil {
		h.l.Warn(ctx,
			"failed to close conn",
			"conn_id", connID,
			"err", err.Error(),
		)
	}

	delete(h.clients, connID)
	if bookingID, ok := h.byConn[connID]; ok {
		delete(h.byConn, connID)
		if group := h.groups[bookingID]; group != nil {
			delete(group, connID)
			if len(group) == 0 {
				delete(h.groups, bookingID)
			}
		}
	}

	return nil
}

// Broadcast sends a message to every subscriber of the booking. Dead
// connections are dropped from the hub.
func (h *ConnectionHub) Broadcast(bookingID uuid.UUID, msg any) {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.groups[bookingID]))
	for connID := range h.groups[bookingID] {
		if c, ok := h.clients[connID]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			_ = h.Delete(c.ID())
		}
	}
}

// SubscriberCount returns how many connections watch the booking.
func (h *ConnectionHub) SubscriberCount(bookingID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[bookingID])
}

// Close closes every connection in the hub.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = h.Delete(conn.ID())
	}

	h.l.Info(ctx, "all websocket connections closed")
}
