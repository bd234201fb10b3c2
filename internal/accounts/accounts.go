// Package accounts holds the bundled staff role accounts. The list is
// loaded once at startup and never written.
package accounts

import (
	"crypto/subtle"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"sigs.k8s.io/yaml"

	"github.com/princesspalace/palace/internal/role"
)

//go:embed accounts.yaml
var defaultAccounts []byte

// Account is one static role account.
type Account struct {
	Email        string    `json:"email"`
	Password     string    `json:"password,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Role         role.Role `json:"role"`
	DisplayName  string    `json:"displayName"`
}

type file struct {
	Accounts []Account `json:"accounts"`
}

// List is an immutable set of static accounts keyed by email.
type List struct {
	byEmail map[string]Account
}

// Load reads the account list from path, or the bundled default when path is empty.
func Load(path string) (*List, error) {
	if path == "" {
		return Parse(defaultAccounts)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading accounts file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML account list.
func Parse(data []byte) (*List, error) {
	var f file
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parsing accounts: %w", err)
	}

	l := &List{byEmail: make(map[string]Account, len(f.Accounts))}
	for i, a := range f.Accounts {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		if _, dup := l.byEmail[a.Email]; dup {
			return nil, fmt.Errorf("account %d: duplicate email %q", i, a.Email)
		}
		l.byEmail[a.Email] = a
	}
	return l, nil
}

func (a Account) validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return errors.New("email is required")
	}
	if !a.Role.Static() {
		return fmt.Errorf("role %q is not a staff role", a.Role)
	}
	if (a.Password == "") == (a.PasswordHash == "") {
		return errors.New("exactly one of password or passwordHash is required")
	}
	if a.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(a.PasswordHash)); err != nil {
			return fmt.Errorf("invalid passwordHash: %w", err)
		}
	}
	return nil
}

// Match returns the account whose email and password both match exactly.
func (l *List) Match(email, password string) (Account, bool) {
	a, ok := l.byEmail[email]
	if !ok {
		return Account{}, false
	}
	if a.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
			return Account{}, false
		}
		return a, true
	}
	if subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) != 1 {
		return Account{}, false
	}
	return a, true
}

// Has reports whether email belongs to a static account.
func (l *List) Has(email string) bool {
	_, ok := l.byEmail[email]
	return ok
}

// Len returns the number of accounts.
func (l *List) Len() int {
	return len(l.byEmail)
}
