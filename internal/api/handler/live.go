package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/live"
	"github.com/princesspalace/palace/internal/order"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 << 10
)

// Client messages on the live socket.
const (
	msgBind   = "bind"
	msgUnbind = "unbind"
)

type liveMessage struct {
	Type  string          `json:"type"`
	Query *docstore.Query `json:"query,omitempty"`
}

type liveFrame struct {
	Type  string                       `json:"type"`
	Key   string                       `json:"key,omitempty"`
	State *live.State[docstore.Fields] `json:"state,omitempty"`
	Error string                       `json:"error,omitempty"`
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// LiveHandler streams live query state over a WebSocket. Each connection
// owns one view; binding a new query replaces the previous subscription.
type LiveHandler struct {
	store    docstore.Store
	errs     Publisher
	upgrader websocket.Upgrader
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(store docstore.Store, errs Publisher, allowedOrigins []string) *LiveHandler {
	return &LiveHandler{store: store, errs: errs, upgrader: newUpgrader(allowedOrigins)}
}

// ScopeQuery restricts q to what actor may list. Customer order queries are
// limited to the customer's own orders.
func ScopeQuery(actor docstore.Actor, q docstore.Query) docstore.Query {
	if q.Collection != docstore.Orders || actor.System || actor.Role.Staff() || actor.UID == "" {
		return q
	}
	if q.HasEquality("userId", actor.UID) {
		return q
	}
	scoped := order.QueryFor(actor)
	for _, f := range q.Filters {
		scoped = scoped.Where(f.Field, f.Op, f.Value)
	}
	return scoped.OrderBy(q.OrderField, q.Descending).Limit(q.Max)
}

// outbox holds the next frame for the writer. A newer frame replaces one
// that has not been written yet.
type outbox struct {
	mu      sync.Mutex
	pending *liveFrame
	notify  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

func (o *outbox) put(f liveFrame) {
	o.mu.Lock()
	o.pending = &f
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *outbox) take() *liveFrame {
	o.mu.Lock()
	defer o.mu.Unlock()
	f := o.pending
	o.pending = nil
	return f
}

// ServeHTTP handles GET /live.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context())
	actor := middleware.Actor(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("live upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	out := newOutbox()
	view := live.NewView[docstore.Fields](ctx, h.store, actor, h.errs, func(st live.State[docstore.Fields]) {
		out.put(liveFrame{Type: "state", Key: st.Key, State: &st})
	})
	defer view.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-out.notify:
			}
			f := out.take()
			if f == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				log.Debug("live write failed", "error", err)
				cancel()
				return
			}
		}
	}()

	log.Debug("live connection opened", "uid", actor.UID, "role", actor.Role)
	for {
		var msg liveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case msgBind:
			if msg.Query == nil {
				out.put(liveFrame{Type: "error", Error: "bind requires a query"})
				continue
			}
			q := ScopeQuery(actor, *msg.Query)
			if err := q.Validate(); err != nil {
				out.put(liveFrame{Type: "error", Error: err.Error()})
				continue
			}
			view.Bind(q)
		case msgUnbind:
			view.Unbind()
		default:
			out.put(liveFrame{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}

	cancel()
	view.Close()
	<-done
	log.Debug("live connection closed", "uid", actor.UID)
}
