// Package identity is the cloud identity provider: email/password accounts
// stored in PostgreSQL, with per-client sign-in state and auth state
// change notifications.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the email or password does not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidEmail is returned when an account email is malformed.
var ErrInvalidEmail = errors.New("invalid email address")

// ErrWeakPassword is returned when an account password is too short.
var ErrWeakPassword = errors.New("password should be at least 6 characters")

// MinPasswordLength is the shortest accepted account password.
const MinPasswordLength = 6

// AuthStateFunc receives the signed-in user of a client, or nil once the
// client is signed out.
type AuthStateFunc func(user *User)

// Provider authenticates cloud accounts.
type Provider struct {
	repo       Repository
	bcryptCost int
	dummyHash  []byte

	mu        sync.Mutex
	nextID    int
	listeners map[string]map[int]AuthStateFunc
}

// NewProvider creates a new identity Provider.
func NewProvider(repo Repository, bcryptCost int) (*Provider, error) {
	// Compared against when the email is unknown so both failure paths cost the same.
	dummy, err := bcrypt.GenerateFromPassword([]byte("palace-dummy-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing dummy password: %w", err)
	}
	return &Provider{
		repo:       repo,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
		listeners:  make(map[string]map[int]AuthStateFunc),
	}, nil
}

// SignInWithPassword verifies the credentials and signs clientID in.
// Auth state listeners of the client are notified on success.
func (p *Provider) SignInWithPassword(ctx context.Context, clientID, email, password string) (*User, error) {
	ident, err := p.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up identity: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if err := p.repo.BindClient(ctx, clientID, ident.ID); err != nil {
		return nil, err
	}

	u := ident.user()
	slog.Info("identity signed in", "identityId", u.ID, "clientId", clientID)
	p.notify(clientID, u)
	return u, nil
}

// CreateAccount registers a new identity. It does not sign any client in.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	ident := &Identity{Email: email, PasswordHash: string(hash)}
	if err := p.repo.Create(ctx, ident); err != nil {
		return nil, err
	}

	return ident.user(), nil
}

// UpdateProfile applies the non-nil fields of update to identity id.
func (p *Provider) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error {
	identityID, err := uuid.Parse(id)
	if err != nil {
		return ErrIdentityNotFound
	}
	if update.DisplayName != nil {
		if err := p.repo.UpdateDisplayName(ctx, identityID, strings.TrimSpace(*update.DisplayName)); err != nil {
			return err
		}
	}
	return nil
}

// SignOut signs clientID out and notifies its listeners.
func (p *Provider) SignOut(ctx context.Context, clientID string) error {
	if err := p.repo.UnbindClient(ctx, clientID); err != nil {
		return err
	}
	slog.Info("identity signed out", "clientId", clientID)
	p.notify(clientID, nil)
	return nil
}

// Current returns the user clientID is signed in as, or nil.
func (p *Provider) Current(ctx context.Context, clientID string) (*User, error) {
	ident, err := p.repo.ClientIdentity(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ident.user(), nil
}

// OnAuthStateChange registers fn for clientID. fn is called once with the
// current state before OnAuthStateChange returns, then after every sign-in
// or sign-out of the client. A failed lookup of the current state is
// reported as signed out.
func (p *Provider) OnAuthStateChange(ctx context.Context, clientID string, fn AuthStateFunc) (unsubscribe func()) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	set, ok := p.listeners[clientID]
	if !ok {
		set = make(map[int]AuthStateFunc)
		p.listeners[clientID] = set
	}
	set[id] = fn
	p.mu.Unlock()

	u, err := p.Current(ctx, clientID)
	if err != nil {
		slog.Warn("failed to load auth state", "clientId", clientID, "error", err)
		u = nil
	}
	fn(u)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.listeners[clientID], id)
			if len(p.listeners[clientID]) == 0 {
				delete(p.listeners, clientID)
			}
		})
	}
}

// notify calls the client's listeners outside the lock.
func (p *Provider) notify(clientID string, u *User) {
	p.mu.Lock()
	fns := make([]AuthStateFunc, 0, len(p.listeners[clientID]))
	for _, fn := range p.listeners[clientID] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		var copied *User
		if u != nil {
			c := *u
			copied = &c
		}
		fn(copied)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
