package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/session"
)

const sessionKey contextKey = "session"

// SessionResolver resolves the current session of a client.
type SessionResolver interface {
	Resolve(ctx context.Context, clientID string) (*session.Session, error)
}

// Session is middleware that resolves the client's session and stores it in
// the context. Anonymous clients get a nil session. It must run after
// ClientCookie.
func Session(resolver SessionResolver, timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := GetClientID(r.Context())
			if clientID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			s, err := resolver.Resolve(ctx, clientID)
			cancel()
			if err != nil {
				Logger(r.Context()).Error("failed to resolve session", "error", err)
				response.Unavailable(w, "SESSION_UNAVAILABLE", "Session could not be resolved", timeout, GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// GetSession retrieves the resolved session from the context, or nil for
// anonymous clients.
func GetSession(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

// Actor returns the document store actor of the request's session. An
// anonymous client is the zero Actor.
func Actor(ctx context.Context) docstore.Actor {
	s := GetSession(ctx)
	if s == nil {
		return docstore.Actor{}
	}
	return docstore.Actor{UID: s.UID, Role: s.Role}
}
