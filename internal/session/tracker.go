package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/identity"
	"github.com/princesspalace/palace/internal/role"
)

// State is a Tracker's resolution state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateResolving     State = "resolving"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Tracker holds the session of one client. Every auth state notification
// starts a resolution cycle numbered by a generation counter; a cycle's
// result is committed only if no newer cycle or explicit transition
// happened in the meantime, so a slow profile lookup can never overwrite
// a later sign-out and a stale local fallback can never overwrite a later
// remote sign-in.
type Tracker struct {
	client Client
	idp    IdentityProvider
	store  docstore.Store

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	session     *Session
	gen         uint64
	changed     chan struct{}
	lastSeen    time.Time
	unsubscribe func()
	cycles      sync.WaitGroup
}

func newTracker(c Client, idp IdentityProvider, store docstore.Store) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		client:   c,
		idp:      idp,
		store:    store,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateUninitialized,
		changed:  make(chan struct{}),
		lastSeen: time.Now(),
	}
}

// start subscribes to the client's auth state. The provider reports the
// current state immediately, which starts the first cycle.
func (t *Tracker) start() {
	unsubscribe := t.idp.OnAuthStateChange(t.ctx, t.client.ID, t.onAuthState)
	t.mu.Lock()
	t.unsubscribe = unsubscribe
	t.mu.Unlock()
}

// Close unsubscribes and waits for running cycles to finish.
func (t *Tracker) Close() {
	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.cancel()
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	t.cycles.Wait()
}

func (t *Tracker) onAuthState(u *identity.User) {
	t.mu.Lock()
	if t.ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	t.gen++
	gen := t.gen
	t.setLocked(StateResolving, t.session)
	t.cycles.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.cycles.Done()
		t.resolve(gen, u)
	}()
}

// resolve runs one cycle. A signed-in identity takes precedence; without
// one, only a static staff session in the local slot is trusted.
func (t *Tracker) resolve(gen uint64, u *identity.User) {
	if u != nil {
		s, err := t.cloudSession(u)
		if err != nil {
			slog.Warn("failed to resolve profile", "identityId", u.ID, "clientId", t.client.ID, "error", err)
			t.commit(gen, nil, false)
			return
		}
		t.commit(gen, s, true)
		return
	}

	s, err := Load(t.ctx, t.client.Storage)
	switch {
	case err != nil && !errors.Is(err, ErrCorruptSession):
		slog.Warn("failed to read persisted session", "clientId", t.client.ID, "error", err)
		t.commit(gen, nil, false)
	case s != nil && s.IsStatic():
		t.commit(gen, s, false)
	default:
		t.commitDiscard(gen, s != nil || err != nil)
	}
}

func (t *Tracker) cloudSession(u *identity.User) (*Session, error) {
	actor := docstore.Actor{UID: u.ID, Role: role.Customer}
	doc, err := t.store.Get(t.ctx, actor, docstore.Path(docstore.Users, u.ID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Cloud(u, role.Customer), nil
		}
		return nil, err
	}

	r := role.Customer
	if name, ok := doc.Data["role"].(string); ok {
		if parsed, ok := role.Parse(name); ok {
			r = parsed
		}
	}
	return Cloud(u, r), nil
}

// commit ends cycle gen with s, or anonymous when s is nil. When persist is
// set the session is written to the slot before it becomes visible.
func (t *Tracker) commit(gen uint64, s *Session, persist bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		slog.Debug("dropping stale session cycle", "clientId", t.client.ID, "generation", gen, "current", t.gen)
		return
	}
	if s == nil {
		t.setLocked(StateAnonymous, nil)
		return
	}
	if persist {
		if err := Save(t.ctx, t.client.Storage, s); err != nil {
			slog.Warn("failed to persist session", "clientId", t.client.ID, "error", err)
		}
	}
	t.setLocked(StateAuthenticated, s)
}

// commitDiscard ends cycle gen as anonymous, removing a stale slot.
func (t *Tracker) commitDiscard(gen uint64, stale bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	if stale {
		if err := Clear(t.ctx, t.client.Storage); err != nil {
			slog.Warn("failed to discard stale session", "clientId", t.client.ID, "error", err)
		}
	}
	t.setLocked(StateAnonymous, nil)
}

// Adopt makes s the current session, superseding any running cycle.
func (t *Tracker) Adopt(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.setLocked(StateAuthenticated, s)
}

// Reset makes the client anonymous, superseding any running cycle.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.setLocked(StateAnonymous, nil)
}

func (t *Tracker) setLocked(state State, s *Session) {
	t.state = state
	t.session = s
	close(t.changed)
	t.changed = make(chan struct{})
}

// Current returns the state and session without waiting.
func (t *Tracker) Current() (State, *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, copySession(t.session)
}

// Generation returns the number of transitions started so far.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Wait blocks while the tracker is resolving and returns the session, or
// nil for an anonymous client.
func (t *Tracker) Wait(ctx context.Context) (*Session, error) {
	for {
		t.mu.Lock()
		t.lastSeen = time.Now()
		if t.state == StateAuthenticated || t.state == StateAnonymous {
			s := copySession(t.session)
			t.mu.Unlock()
			return s, nil
		}
		changed := t.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Changed returns a channel closed at the next state transition.
func (t *Tracker) Changed() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

func (t *Tracker) touch() {
	t.mu.Lock()
	t.lastSeen = time.Now()
	t.mu.Unlock()
}

func (t *Tracker) idleSince() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}

func copySession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
