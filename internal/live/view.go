// Package live binds a view to a live document store query and keeps its
// state equal to the latest snapshot.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/princesspalace/palace/internal/docstore"
)

// Publisher receives subscription failures for out-of-band reporting.
// Publish must not block.
type Publisher interface {
	Publish(err error)
}

// Doc is a decoded document tagged with its store-assigned ID.
type Doc[T any] struct {
	ID   string
	Data T
}

// MarshalJSON encodes the document as its data object with an "id" field.
func (d Doc[T]) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(d.Data)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return json.Marshal(struct {
			ID   string          `json:"id"`
			Data json.RawMessage `json:"data"`
		}{d.ID, data})
	}
	id, _ := json.Marshal(d.ID)
	fields["id"] = id
	return json.Marshal(fields)
}

// State is what a view currently shows. Key is the key of the query the
// state belongs to, or "" when unbound.
type State[T any] struct {
	Key     string            `json:"-"`
	Items   []Doc[T]          `json:"items"`
	Loading bool              `json:"loading"`
	Err     *docstore.OpError `json:"error,omitempty"`
}

// View holds at most one store subscription. Binding a query with a new
// key cancels the previous subscription, waiting for it to stop, before
// subscribing again.
type View[T any] struct {
	store    docstore.Store
	actor    docstore.Actor
	errs     Publisher
	onChange func(State[T])

	ctx    context.Context
	bindMu sync.Mutex

	mu     sync.Mutex
	key    string
	bound  bool
	closed bool
	gen    uint64
	cancel func()
	state  State[T]
}

// NewView creates an unbound view reading as actor. onChange, which may be
// nil, receives every new state in order; it must not call back into the
// view's Bind, Unbind or Close.
func NewView[T any](ctx context.Context, store docstore.Store, actor docstore.Actor, errs Publisher, onChange func(State[T])) *View[T] {
	return &View[T]{
		store:    store,
		actor:    actor,
		errs:     errs,
		onChange: onChange,
		ctx:      ctx,
		state:    State[T]{Items: []Doc[T]{}},
	}
}

// BindCollection binds every document of collection.
func (v *View[T]) BindCollection(collection string) {
	v.Bind(docstore.Collection(collection))
}

// Bind subscribes to q. Binding a query with the key of the current one
// is a no-op, so callers must rebuild equal queries rather than mutate them.
func (v *View[T]) Bind(q docstore.Query) {
	v.bindMu.Lock()
	defer v.bindMu.Unlock()

	key := q.Key()
	v.mu.Lock()
	if v.closed || (v.bound && v.key == key) {
		v.mu.Unlock()
		return
	}
	old := v.cancel
	v.cancel = nil
	v.gen++
	gen := v.gen
	v.key = key
	v.bound = true
	v.state = State[T]{Items: []Doc[T]{}, Loading: true}
	st := v.snapshotLocked()
	v.mu.Unlock()

	if old != nil {
		old()
	}
	v.emit(st)

	cancel := v.store.Subscribe(v.ctx, v.actor, q,
		func(snap docstore.Snapshot) { v.deliver(gen, snap) },
		func(err error) { v.fail(gen, q, err) },
	)

	v.mu.Lock()
	v.cancel = cancel
	v.mu.Unlock()
}

// Unbind cancels the subscription and leaves an empty, idle state.
func (v *View[T]) Unbind() {
	v.bindMu.Lock()
	defer v.bindMu.Unlock()

	v.mu.Lock()
	if !v.bound {
		v.mu.Unlock()
		return
	}
	old := v.cancel
	v.cancel = nil
	v.gen++
	v.key = ""
	v.bound = false
	v.state = State[T]{Items: []Doc[T]{}}
	st := v.snapshotLocked()
	v.mu.Unlock()

	if old != nil {
		old()
	}
	v.emit(st)
}

// Close cancels the subscription. A closed view ignores further binds.
func (v *View[T]) Close() {
	v.bindMu.Lock()
	defer v.bindMu.Unlock()

	v.mu.Lock()
	old := v.cancel
	v.cancel = nil
	v.gen++
	v.closed = true
	v.bound = false
	v.mu.Unlock()

	if old != nil {
		old()
	}
}

// State returns a copy of the current state.
func (v *View[T]) State() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Key returns the key of the bound query, or "" when unbound.
func (v *View[T]) Key() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key
}

func (v *View[T]) deliver(gen uint64, snap docstore.Snapshot) {
	items := make([]Doc[T], 0, len(snap.Docs))
	for _, d := range snap.Docs {
		var data T
		if err := docstore.Decode(d.Data, &data); err != nil {
			slog.Warn("skipping undecodable document", "id", d.ID, "error", err)
			continue
		}
		items = append(items, Doc[T]{ID: d.ID, Data: data})
	}

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.state = State[T]{Items: items}
	st := v.snapshotLocked()
	v.mu.Unlock()

	v.emit(st)
}

// fail records a terminal subscription error and reports it once.
func (v *View[T]) fail(gen uint64, q docstore.Query, err error) {
	cause := err
	var oe *docstore.OpError
	if errors.As(err, &oe) {
		cause = oe.Err
	}
	viewErr := &docstore.OpError{Op: docstore.OpList, Path: q.Path(), Err: cause}

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.state = State[T]{Items: []Doc[T]{}, Err: viewErr}
	if v.errs != nil {
		v.errs.Publish(viewErr)
	}
	st := v.snapshotLocked()
	v.mu.Unlock()

	slog.Warn("live subscription failed", "path", viewErr.Path, "error", cause)
	v.emit(st)
}

func (v *View[T]) emit(st State[T]) {
	if v.onChange != nil {
		v.onChange(st)
	}
}

func (v *View[T]) snapshotLocked() State[T] {
	st := v.state
	st.Key = v.key
	st.Items = append([]Doc[T](nil), v.state.Items...)
	if st.Items == nil {
		st.Items = []Doc[T]{}
	}
	return st
}
