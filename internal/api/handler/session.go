package handler

import (
	"net/http"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/role"
	"github.com/princesspalace/palace/internal/session"
)

type routeCheck struct {
	Path     string `json:"path"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

type sessionData struct {
	Authenticated bool             `json:"authenticated"`
	Session       *sessionResponse `json:"session"`
	Landing       string           `json:"landing"`
	Nav           []role.NavLink   `json:"nav"`
	Route         *routeCheck      `json:"route,omitempty"`
}

// SessionHandler handles GET /session.
type SessionHandler struct{}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// ServeHTTP returns the resolved session with the role's landing path and
// navigation. With ?path= it also reports whether the session may open
// that page and where to send it otherwise.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s := middleware.GetSession(r.Context())

	data := sessionData{
		Authenticated: s != nil,
		Session:       toSessionResponse(s),
		Landing:       role.LoginPath,
		Nav:           []role.NavLink{},
	}
	if s != nil {
		data.Landing = role.Landing(s.Role)
		data.Nav = role.NavLinks(s.Role)
	}

	if path := session.SafeDeepLink(r.URL.Query().Get("path")); path != "" {
		check := &routeCheck{Path: path}
		switch {
		case s == nil:
			check.Redirect = session.LoginRedirect(path)
		case role.CanVisit(s.Role, path):
			check.Allowed = true
		default:
			check.Redirect = data.Landing
		}
		data.Route = check
	}

	response.Success(w, http.StatusOK, data, requestID)
}
