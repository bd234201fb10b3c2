// Package errbus is the in-process channel that store failures are
// reported on for developer tooling.
package errbus

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/princesspalace/palace/internal/docstore"
)

// Kind classifies a reported error.
type Kind string

const (
	KindPermission Kind = "permission-error"
	KindTransport  Kind = "transport-error"
)

// Event is one reported failure.
type Event struct {
	Kind      Kind      `json:"kind"`
	Operation string    `json:"operation,omitempty"`
	Path      string    `json:"path,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// Bus fans events out to subscribers. Publishing never blocks; a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	now    func() time.Time
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
		now:  time.Now,
	}
}

// NewEvent classifies err into an Event.
func NewEvent(err error, at time.Time) Event {
	ev := Event{Kind: KindTransport, Message: err.Error(), At: at}
	var oe *docstore.OpError
	if errors.As(err, &oe) {
		ev.Operation = string(oe.Op)
		ev.Path = oe.Path
		if oe.Permission() {
			ev.Kind = KindPermission
		}
	}
	return ev
}

// Publish reports err to every subscriber.
func (b *Bus) Publish(err error) {
	if b == nil || err == nil {
		return
	}
	ev := NewEvent(err, b.now())

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("errbus: subscriber buffer full, dropping event", "subscriber", id, "kind", ev.Kind)
		}
	}
}

// Subscribe returns a channel receiving future events. Cancel closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
