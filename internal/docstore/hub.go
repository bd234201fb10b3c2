package docstore

import (
	"context"
	"sync"
	"sync/atomic"
)

// hub fans collection change notifications out to live subscriptions.
// Each subscription re-reads its query whenever its collection is woken.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*watcher]struct{}

	opened atomic.Int64
	active atomic.Int64
}

type watcher struct {
	dirty chan struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*watcher]struct{})}
}

func (h *hub) register(collection string) *watcher {
	w := &watcher{dirty: make(chan struct{}, 1)}
	h.mu.Lock()
	set, ok := h.subs[collection]
	if !ok {
		set = make(map[*watcher]struct{})
		h.subs[collection] = set
	}
	set[w] = struct{}{}
	h.mu.Unlock()
	return w
}

func (h *hub) unregister(collection string, w *watcher) {
	h.mu.Lock()
	if set, ok := h.subs[collection]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(h.subs, collection)
		}
	}
	h.mu.Unlock()
}

// wake marks every subscription on collection dirty. Pending wakes coalesce.
func (h *hub) wake(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.subs[collection] {
		select {
		case w.dirty <- struct{}{}:
		default:
		}
	}
}

func (h *hub) wakeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for w := range set {
			select {
			case w.dirty <- struct{}{}:
			default:
			}
		}
	}
}

// subscribe runs fetch now and after every wake of collection, delivering
// results in order from a single goroutine. The first fetch error is
// reported to onError and ends the subscription.
func (h *hub) subscribe(
	ctx context.Context,
	collection string,
	fetch func(ctx context.Context) (Snapshot, error),
	onSnapshot func(Snapshot),
	onError func(error),
) func() {
	ctx, stop := context.WithCancel(ctx)
	w := h.register(collection)
	done := make(chan struct{})

	h.opened.Add(1)
	h.active.Add(1)

	go func() {
		defer close(done)
		defer h.active.Add(-1)
		defer h.unregister(collection, w)

		for {
			snap, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				onError(err)
				return
			}
			onSnapshot(snap)

			select {
			case <-ctx.Done():
				return
			case <-w.dirty:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(stop)
		<-done
	}
}

// Stats reports how many subscriptions were ever opened and how many are
// still running.
type Stats struct {
	Opened int64
	Active int64
}

func (h *hub) stats() Stats {
	return Stats{Opened: h.opened.Load(), Active: h.active.Load()}
}
