package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/kv"
)

// Manager owns the Tracker of every active client and evicts idle ones.
type Manager struct {
	resolver *Resolver
	idp      IdentityProvider
	store    docstore.Store
	storage  kv.Storage
	idleTTL  time.Duration
	interval time.Duration

	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewManager creates a new Manager. Client slots are scoped views of storage.
func NewManager(resolver *Resolver, idp IdentityProvider, store docstore.Store, storage kv.Storage, idleTTL time.Duration) *Manager {
	interval := idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	return &Manager{
		resolver: resolver,
		idp:      idp,
		store:    store,
		storage:  storage,
		idleTTL:  idleTTL,
		interval: interval,
		trackers: make(map[string]*Tracker),
	}
}

// Client returns the client handle for clientID.
func (m *Manager) Client(clientID string) Client {
	return Client{ID: clientID, Storage: kv.Scope(m.storage, clientID)}
}

// Tracker returns the tracker of clientID, creating and starting it on first use.
func (m *Manager) Tracker(clientID string) *Tracker {
	m.mu.Lock()
	t, ok := m.trackers[clientID]
	if !ok {
		t = newTracker(m.Client(clientID), m.idp, m.store)
		m.trackers[clientID] = t
	}
	// Touched under m.mu so evictIdle never closes a tracker being handed out.
	t.touch()
	m.mu.Unlock()

	if !ok {
		t.start()
	}
	return t
}

// Resolve waits for the session of clientID. It returns nil for anonymous clients.
func (m *Manager) Resolve(ctx context.Context, clientID string) (*Session, error) {
	return m.Tracker(clientID).Wait(ctx)
}

// SignIn signs clientID in. Static sessions become current immediately;
// cloud sessions resolve through the tracker's auth state subscription.
func (m *Manager) SignIn(ctx context.Context, clientID, email, password, deepLink string) (*SignInResult, error) {
	t := m.Tracker(clientID)
	res, err := m.resolver.SignIn(ctx, t.client, email, password, deepLink)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		t.Adopt(res.Session)
	}
	return res, nil
}

// Register creates a customer account.
func (m *Manager) Register(ctx context.Context, displayName, email, password string) (string, error) {
	return m.resolver.Register(ctx, displayName, email, password)
}

// SignOut signs clientID out and returns the login path.
func (m *Manager) SignOut(ctx context.Context, clientID string) (string, error) {
	t := m.Tracker(clientID)
	redirect, err := m.resolver.SignOut(ctx, t.client)
	if err != nil {
		return "", err
	}
	t.Reset()
	return redirect, nil
}

// Len returns the number of live trackers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trackers)
}

// Start begins the idle eviction loop. It blocks until ctx is cancelled,
// then closes every tracker.
func (m *Manager) Start(ctx context.Context) {
	slog.Info("session manager started", "idleTTL", m.idleTTL.String())
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			slog.Info("session manager stopped")
			return
		case <-ticker.C:
			m.evictIdle(time.Now())
		}
	}
}

func (m *Manager) evictIdle(now time.Time) int {
	var idle []*Tracker
	m.mu.Lock()
	for id, t := range m.trackers {
		if now.Sub(t.idleSince()) >= m.idleTTL {
			idle = append(idle, t)
			delete(m.trackers, id)
		}
	}
	m.mu.Unlock()

	for _, t := range idle {
		t.Close()
	}
	if len(idle) > 0 {
		slog.Debug("evicted idle session trackers", "count", len(idle))
	}
	return len(idle)
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	all := make([]*Tracker, 0, len(m.trackers))
	for id, t := range m.trackers {
		all = append(all, t)
		delete(m.trackers, id)
	}
	m.mu.Unlock()

	for _, t := range all {
		t.Close()
	}
}
