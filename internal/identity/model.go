package identity

import (
	"time"

	"github.com/google/uuid"
)

// Identity represents a row in the identities table.
type Identity struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// User is the signed-in identity reported to auth state listeners.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// ProfileUpdate holds the optional profile fields to change.
// Only non-nil fields are applied.
type ProfileUpdate struct {
	DisplayName *string
}

func (i *Identity) user() *User {
	return &User{
		ID:          i.ID.String(),
		Email:       i.Email,
		DisplayName: i.DisplayName,
	}
}
