package middleware

import (
	"net/http"

	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/role"
)

// RequireSession returns middleware that rejects anonymous clients with 401.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetSession(r.Context()) == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole returns middleware that rejects sessions whose role is not
// in the allowed list.
func RequireRole(roles ...role.Role) func(http.Handler) http.Handler {
	allowed := make(map[role.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			s := GetSession(r.Context())
			if s == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required", requestID)
				return
			}

			if !allowed[s.Role] {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
