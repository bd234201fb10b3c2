package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/errbus"
)

// ErrorStream is the developer error bus.
type ErrorStream interface {
	Subscribe(buffer int) (<-chan errbus.Event, func())
}

// DebugHandler streams reported store failures to developer tooling.
type DebugHandler struct {
	bus      ErrorStream
	upgrader websocket.Upgrader
}

// NewDebugHandler creates a new DebugHandler.
func NewDebugHandler(bus ErrorStream, allowedOrigins []string) *DebugHandler {
	return &DebugHandler{bus: bus, upgrader: newUpgrader(allowedOrigins)}
}

// Errors handles GET /debug/errors.
func (h *DebugHandler) Errors(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("debug upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := h.bus.Subscribe(32)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
