package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrIdentityNotFound is returned when an identity record is not found.
var ErrIdentityNotFound = errors.New("identity not found")

// ErrEmailInUse is returned when creating an identity whose email already exists.
var ErrEmailInUse = errors.New("email already in use")

// Repository provides operations on the identities and client_identities tables.
type Repository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error

	// BindClient records that clientID is signed in as identityID,
	// replacing any previous binding.
	BindClient(ctx context.Context, clientID string, identityID uuid.UUID) error
	// UnbindClient signs clientID out. It is not an error if no binding exists.
	UnbindClient(ctx context.Context, clientID string) error
	// ClientIdentity returns the identity clientID is signed in as.
	ClientIdentity(ctx context.Context, clientID string) (*Identity, error)
}
