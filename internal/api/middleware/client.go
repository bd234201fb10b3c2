package middleware

import (
	"context"
	"net/http"

	"github.com/princesspalace/palace/internal/api/response"
)

const clientIDKey contextKey = "clientID"

// ClientTokens issues and verifies client tokens.
type ClientTokens interface {
	New() (id, token string, err error)
	Parse(token string) (string, error)
}

// ClientCookie is middleware that identifies the browser client by a signed
// cookie. Requests without a valid cookie are assigned a new client ID and
// the cookie is set on the response.
func ClientCookie(tokens ClientTokens, cookieName string, maxAge int, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var clientID string
			if c, err := r.Cookie(cookieName); err == nil {
				if id, err := tokens.Parse(c.Value); err == nil {
					clientID = id
				} else {
					Logger(r.Context()).Debug("discarding invalid client cookie", "error", err)
				}
			}

			if clientID == "" {
				id, token, err := tokens.New()
				if err != nil {
					Logger(r.Context()).Error("failed to issue client token", "error", err)
					response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to identify client", GetRequestID(r.Context()))
					return
				}
				clientID = id
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   maxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), clientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientID retrieves the client ID from the context.
func GetClientID(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey).(string); ok {
		return id
	}
	return ""
}

// WithClientID returns a context carrying clientID.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}
