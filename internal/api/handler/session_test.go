package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princesspalace/palace/internal/api/handler"
	"github.com/princesspalace/palace/internal/session"
)

func TestSession_Anonymous(t *testing.T) {
	req, w := makeChiRequest(http.MethodGet, "/session?path=/finance", nil, nil)

	handler.NewSessionHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["authenticated"])
	assert.Nil(t, data["session"])
	assert.Equal(t, "/login", data["landing"])
	assert.Empty(t, data["nav"])

	route := data["route"].(map[string]interface{})
	assert.Equal(t, false, route["allowed"])
	assert.Equal(t, "/login?redirect=%2Ffinance", route["redirect"])
}

func TestSession_RoleNavigationAndRouteCheck(t *testing.T) {
	tests := []struct {
		name         string
		session      *session.Session
		path         string
		wantLanding  string
		wantNav      int
		wantAllowed  bool
		wantRedirect string
	}{
		{"waiter on orders", waiterSession, "/orders", "/waiter", 2, true, ""},
		{"waiter on finance", waiterSession, "/finance", "/waiter", 2, false, "/waiter"},
		{"admin on pos", adminSession, "/pos", "/admin", 7, true, ""},
		{"customer on admin", customerSession, "/admin", "/dashboard", 1, false, "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, w := makeChiRequest(http.MethodGet, "/session?path="+tt.path, nil, nil)

			handler.NewSessionHandler().ServeHTTP(w, withSession(req, tt.session))

			data := parseEnvelope(t, w)["data"].(map[string]interface{})
			assert.Equal(t, true, data["authenticated"])
			assert.Equal(t, tt.wantLanding, data["landing"])
			assert.Len(t, data["nav"], tt.wantNav)

			route := data["route"].(map[string]interface{})
			assert.Equal(t, tt.wantAllowed, route["allowed"])
			if tt.wantRedirect == "" {
				assert.NotContains(t, route, "redirect")
			} else {
				assert.Equal(t, tt.wantRedirect, route["redirect"])
			}
		})
	}
}

func TestSession_IgnoresExternalPath(t *testing.T) {
	req, w := makeChiRequest(http.MethodGet, "/session?path=//evil.example", nil, nil)

	handler.NewSessionHandler().ServeHTTP(w, withSession(req, waiterSession))

	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.NotContains(t, data, "route")
	s := data["session"].(map[string]interface{})
	require.NotNil(t, s)
	assert.Equal(t, "waiter@palace.test", s["email"])
}
