// Package session resolves who a client is. Each browser client gets a
// Tracker that merges two disjoint credential sources, the bundled staff
// accounts and the cloud identity provider, into one Session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/princesspalace/palace/internal/accounts"
	"github.com/princesspalace/palace/internal/identity"
	"github.com/princesspalace/palace/internal/kv"
	"github.com/princesspalace/palace/internal/role"
)

// StorageKey is the client KV slot a session is persisted under.
const StorageKey = "session"

// StaticUIDPrefix prefixes the synthesized UID of static accounts.
const StaticUIDPrefix = "hardcoded-"

// ErrCorruptSession is returned when the persisted slot cannot be decoded.
var ErrCorruptSession = errors.New("persisted session is corrupt")

// Origin identifies which credential source backs a session.
// It is either StaticOrigin or CloudOrigin.
type Origin interface {
	kind() string
}

// StaticOrigin backs sessions of bundled staff accounts.
type StaticOrigin struct {
	Role role.Role
}

// CloudOrigin backs sessions of identity provider accounts.
type CloudOrigin struct {
	IdentityID string
}

func (StaticOrigin) kind() string { return "static" }
func (CloudOrigin) kind() string  { return "cloud" }

// Session is the resolved identity of a client.
type Session struct {
	UID         string
	Email       string
	DisplayName string
	Role        role.Role
	Origin      Origin
}

// Static builds the session of a static account. The UID depends only on
// the email.
func Static(a accounts.Account) *Session {
	return &Session{
		UID:         StaticUIDPrefix + a.Email,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        a.Role,
		Origin:      StaticOrigin{Role: a.Role},
	}
}

// Cloud builds the session of a signed-in cloud identity.
func Cloud(u *identity.User, r role.Role) *Session {
	name := u.DisplayName
	if name == "" {
		name = "Customer"
	}
	return &Session{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: name,
		Role:        r,
		Origin:      CloudOrigin{IdentityID: u.ID},
	}
}

// IsStatic reports whether s is backed by a static account with a staff role.
func (s *Session) IsStatic() bool {
	o, ok := s.Origin.(StaticOrigin)
	return ok && o.Role.Static() && s.Role == o.Role
}

type sessionJSON struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        role.Role `json:"role"`
	Origin      string    `json:"origin,omitempty"`
	IdentityID  string    `json:"identityId,omitempty"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		UID:         s.UID,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		Role:        s.Role,
	}
	switch o := s.Origin.(type) {
	case StaticOrigin:
		out.Origin = o.kind()
	case CloudOrigin:
		out.Origin = o.kind()
		out.IdentityID = o.IdentityID
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a session. Records without an origin are
// attributed by role: staff roles with a synthesized UID are static,
// anything else is cloud.
func (s *Session) UnmarshalJSON(b []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in.UID == "" {
		return errors.New("session uid is required")
	}

	*s = Session{
		UID:         in.UID,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Role:        in.Role,
	}
	switch in.Origin {
	case "static":
		s.Origin = StaticOrigin{Role: in.Role}
	case "cloud":
		id := in.IdentityID
		if id == "" {
			id = in.UID
		}
		s.Origin = CloudOrigin{IdentityID: id}
	case "":
		if in.Role.Static() && strings.HasPrefix(in.UID, StaticUIDPrefix) {
			s.Origin = StaticOrigin{Role: in.Role}
		} else {
			s.Origin = CloudOrigin{IdentityID: in.UID}
		}
	default:
		return fmt.Errorf("unknown session origin %q", in.Origin)
	}
	return nil
}

// Save persists s in the client's slot.
func Save(ctx context.Context, storage kv.Storage, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := storage.SetItem(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}

// Load reads the persisted session. It returns nil when the slot is empty
// and ErrCorruptSession when it cannot be decoded.
func Load(ctx context.Context, storage kv.Storage) (*Session, error) {
	raw, ok, err := storage.GetItem(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return &s, nil
}

// Clear removes the persisted session.
func Clear(ctx context.Context, storage kv.Storage) error {
	if err := storage.RemoveItem(ctx, StorageKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
