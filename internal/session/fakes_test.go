package session_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/identity"
)

// --- Fake Identity Provider ---

type fakeAccount struct {
	user     identity.User
	password string
}

type fakeIDP struct {
	mu        sync.Mutex
	accounts  map[string]*fakeAccount
	signedIn  map[string]*identity.User
	listeners map[string]map[int]identity.AuthStateFunc
	nextID    int

	signInCalls  int
	signOutCalls int
	createErr    error
	updateErr    error
}

func newFakeIDP() *fakeIDP {
	return &fakeIDP{
		accounts:  make(map[string]*fakeAccount),
		signedIn:  make(map[string]*identity.User),
		listeners: make(map[string]map[int]identity.AuthStateFunc),
	}
}

func (f *fakeIDP) addAccount(email, password, displayName string) identity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := identity.User{ID: uuid.NewString(), Email: email, DisplayName: displayName}
	f.accounts[email] = &fakeAccount{user: u, password: password}
	return u
}

func (f *fakeIDP) SignInWithPassword(_ context.Context, clientID, email, password string) (*identity.User, error) {
	f.mu.Lock()
	f.signInCalls++
	a, ok := f.accounts[email]
	if !ok || a.password != password {
		f.mu.Unlock()
		return nil, identity.ErrInvalidCredentials
	}
	u := a.user
	f.signedIn[clientID] = &u
	f.mu.Unlock()

	f.notify(clientID, &u)
	return &u, nil
}

func (f *fakeIDP) CreateAccount(_ context.Context, email, password string) (*identity.User, error) {
	f.mu.Lock()
	if f.createErr != nil {
		err := f.createErr
		f.mu.Unlock()
		return nil, err
	}
	if _, ok := f.accounts[email]; ok {
		f.mu.Unlock()
		return nil, identity.ErrEmailInUse
	}
	f.mu.Unlock()
	u := f.addAccount(email, password, "")
	return &u, nil
}

func (f *fakeIDP) UpdateProfile(_ context.Context, id string, update identity.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, a := range f.accounts {
		if a.user.ID == id && update.DisplayName != nil {
			a.user.DisplayName = *update.DisplayName
		}
	}
	return nil
}

func (f *fakeIDP) SignOut(_ context.Context, clientID string) error {
	f.mu.Lock()
	f.signOutCalls++
	delete(f.signedIn, clientID)
	f.mu.Unlock()

	f.notify(clientID, nil)
	return nil
}

func (f *fakeIDP) OnAuthStateChange(_ context.Context, clientID string, fn identity.AuthStateFunc) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.listeners[clientID] == nil {
		f.listeners[clientID] = make(map[int]identity.AuthStateFunc)
	}
	f.listeners[clientID][id] = fn
	current := f.signedIn[clientID]
	f.mu.Unlock()

	fn(current)

	return func() {
		f.mu.Lock()
		delete(f.listeners[clientID], id)
		f.mu.Unlock()
	}
}

func (f *fakeIDP) notify(clientID string, u *identity.User) {
	f.mu.Lock()
	fns := make([]identity.AuthStateFunc, 0, len(f.listeners[clientID]))
	for _, fn := range f.listeners[clientID] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

func (f *fakeIDP) counts() (signIn, signOut int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signInCalls, f.signOutCalls
}

// --- Store wrappers ---

// gatedStore blocks Get on users until release is closed.
type gatedStore struct {
	docstore.Store
	release chan struct{}
	entered chan struct{}
}

func (g *gatedStore) Get(ctx context.Context, actor docstore.Actor, path string) (*docstore.Document, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.Store.Get(ctx, actor, path)
}

// failingStore fails every Get with a transport error.
type failingStore struct {
	docstore.Store
	err error
}

func (f *failingStore) Get(_ context.Context, _ docstore.Actor, path string) (*docstore.Document, error) {
	return nil, &docstore.OpError{Op: docstore.OpGet, Path: path, Err: f.err}
}
