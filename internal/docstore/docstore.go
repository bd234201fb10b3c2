// Package docstore is the remote document store every view and service
// reads from and writes to. Documents live in named collections, carry a
// store-assigned ID, and can be observed through live query subscriptions
// that deliver a full snapshot on every change.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/princesspalace/palace/internal/role"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrPermissionDenied is returned when the actor lacks rights to the path.
var ErrPermissionDenied = errors.New("missing or insufficient permissions")

// ErrInvalidPath is returned for malformed collection names or document paths.
var ErrInvalidPath = errors.New("invalid document path")

// Operation is the kind of access an actor attempts.
type Operation string

const (
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// OpError describes a failed store operation together with the resource path.
// Err is ErrPermissionDenied for authorization failures; anything else is a
// transport or storage failure.
type OpError struct {
	Op   Operation `json:"operation"`
	Path string    `json:"path"`
	Err  error     `json:"-"`
}

func (e *OpError) Error() string {
	return fmt.Sprintf("docstore %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Permission reports whether the failure was an authorization rejection.
func (e *OpError) Permission() bool {
	return errors.Is(e.Err, ErrPermissionDenied)
}

// Fields is the payload of a document.
type Fields map[string]any

// Document is a stored document tagged with its identifier.
type Document struct {
	ID        string
	Data      Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is the complete current result set of a subscribed query.
type Snapshot struct {
	Docs   []Document
	ReadAt time.Time
}

// Actor is the identity on whose behalf an operation runs.
// The zero Actor is an anonymous visitor.
type Actor struct {
	UID    string
	Role   role.Role
	System bool
}

// System bypasses access rules. It is used by server-side flows such as
// account registration that act on behalf of the platform, not a user.
var System = Actor{UID: "system", System: true}

// Store is the consumed contract of the remote document store.
type Store interface {
	// Subscribe delivers a snapshot of q now and after every change to q's
	// collection until the returned cancel func is called or ctx ends.
	// onError is invoked at most once and terminates the subscription.
	// Cancel blocks until no further callbacks can run; it must not be
	// called from inside a callback.
	Subscribe(ctx context.Context, actor Actor, q Query, onSnapshot func(Snapshot), onError func(error)) (cancel func())

	// Add creates a document with a store-assigned ID.
	Add(ctx context.Context, actor Actor, collection string, data Fields) (string, error)

	// Set creates or replaces the document at path.
	Set(ctx context.Context, actor Actor, path string, data Fields) error

	// Update merges partial into the existing document at path.
	Update(ctx context.Context, actor Actor, path string, partial Fields) error

	// Get returns the document at path or ErrNotFound.
	Get(ctx context.Context, actor Actor, path string) (*Document, error)
}

var collectionRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,62}$`)

// ValidCollection reports whether name is an acceptable collection name.
func ValidCollection(name string) bool {
	return collectionRegex.MatchString(name)
}

// Path joins a collection and document ID.
func Path(collection, id string) string {
	return collection + "/" + id
}

// SplitPath splits "collection/id" into its parts.
func SplitPath(path string) (collection, id string, err error) {
	collection, id, ok := strings.Cut(path, "/")
	if !ok || id == "" || strings.Contains(id, "/") || !ValidCollection(collection) {
		return "", "", ErrInvalidPath
	}
	return collection, id, nil
}

// ToFields converts a JSON-tagged struct into document fields.
func ToFields(v any) (Fields, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decoding document fields: %w", err)
	}
	delete(f, "id")
	return f, nil
}

// Decode fills v, a pointer to a JSON-tagged struct, from document fields.
func Decode(f Fields, v any) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding document fields: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return nil
}

// Once returns the first snapshot of q and cancels the subscription.
func Once(ctx context.Context, s Store, actor Actor, q Query) ([]Document, error) {
	type result struct {
		docs []Document
		err  error
	}
	ch := make(chan result, 1)

	cancel := s.Subscribe(ctx, actor, q,
		func(snap Snapshot) {
			select {
			case ch <- result{docs: snap.Docs}:
			default:
			}
		},
		func(err error) {
			select {
			case ch <- result{err: err}:
			default:
			}
		},
	)
	defer cancel()

	select {
	case r := <-ch:
		return r.docs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func opErr(op Operation, path string, err error) error {
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Path: path, Err: err}
}
