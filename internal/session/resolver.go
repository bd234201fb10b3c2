package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/princesspalace/palace/internal/accounts"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/identity"
	"github.com/princesspalace/palace/internal/kv"
	"github.com/princesspalace/palace/internal/role"
)

// IdentityProvider is the cloud identity provider as consumed by sessions.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, clientID, email, password string) (*identity.User, error)
	CreateAccount(ctx context.Context, email, password string) (*identity.User, error)
	UpdateProfile(ctx context.Context, id string, update identity.ProfileUpdate) error
	SignOut(ctx context.Context, clientID string) error
	OnAuthStateChange(ctx context.Context, clientID string, fn identity.AuthStateFunc) (unsubscribe func())
}

// StaticAccounts is the bundled staff account list.
type StaticAccounts interface {
	Match(email, password string) (accounts.Account, bool)
	Has(email string) bool
}

// Client is one browser client: its ID and durable KV slot.
type Client struct {
	ID      string
	Storage kv.Storage
}

// SignInResult is the outcome of a successful sign-in.
type SignInResult struct {
	// Session is set for static accounts. Cloud sessions resolve
	// asynchronously through the client's Tracker.
	Session  *Session
	Pending  bool
	Redirect string
}

// Resolver implements sign-in, registration and sign-out.
type Resolver struct {
	accounts StaticAccounts
	idp      IdentityProvider
	store    docstore.Store
}

// NewResolver creates a new Resolver.
func NewResolver(accts StaticAccounts, idp IdentityProvider, store docstore.Store) *Resolver {
	return &Resolver{
		accounts: accts,
		idp:      idp,
		store:    store,
	}
}

// SignIn checks the static accounts first and only then the identity
// provider. A static email with the wrong password fails without a cloud
// attempt.
func (r *Resolver) SignIn(ctx context.Context, c Client, email, password, deepLink string) (*SignInResult, error) {
	if a, ok := r.accounts.Match(email, password); ok {
		s := Static(a)
		if err := Save(ctx, c.Storage, s); err != nil {
			return nil, err
		}
		slog.Info("static account signed in", "role", s.Role, "clientId", c.ID)
		return &SignInResult{Session: s, Redirect: PostLoginRedirect(s.Role, deepLink)}, nil
	}
	if r.accounts.Has(email) {
		return nil, &AuthError{}
	}

	if _, err := r.idp.SignInWithPassword(ctx, c.ID, email, password); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, &AuthError{Err: err}
		}
		return nil, fmt.Errorf("signing in with identity provider: %w", err)
	}

	return &SignInResult{Pending: true, Redirect: PostLoginRedirect(role.Customer, deepLink)}, nil
}

// Register creates a customer account and its profile record. It does not
// sign in.
func (r *Resolver) Register(ctx context.Context, displayName, email, password string) (string, error) {
	u, err := r.idp.CreateAccount(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailInUse) {
			return "", &RegistrationError{Message: emailInUseMessage, Err: err}
		}
		return "", &RegistrationError{Message: registrationFailedMessage, Err: err}
	}

	if err := r.idp.UpdateProfile(ctx, u.ID, identity.ProfileUpdate{DisplayName: &displayName}); err != nil {
		return "", &RegistrationError{Message: registrationFailedMessage, Err: err}
	}

	profile := docstore.Fields{
		"displayName": displayName,
		"email":       u.Email,
		"role":        string(role.Customer),
	}
	// A missing profile resolves as customer, so a failed write does not fail registration.
	if err := r.store.Set(ctx, docstore.System, docstore.Path(docstore.Users, u.ID), profile); err != nil {
		slog.Error("failed to write user profile", "identityId", u.ID, "error", err)
	}

	return registeredMessage, nil
}

// SignOut clears the client's slot. Cloud sessions, and slots that cannot
// be decoded, are also signed out of the identity provider.
func (r *Resolver) SignOut(ctx context.Context, c Client) (string, error) {
	s, err := Load(ctx, c.Storage)
	if err != nil && !errors.Is(err, ErrCorruptSession) {
		return "", err
	}

	if s == nil || !s.IsStatic() {
		if err := r.idp.SignOut(ctx, c.ID); err != nil {
			return "", fmt.Errorf("signing out of identity provider: %w", err)
		}
	}

	if err := Clear(ctx, c.Storage); err != nil {
		return "", err
	}
	return role.LoginPath, nil
}
