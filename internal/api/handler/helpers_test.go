package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/princesspalace/palace/internal/accounts"
	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/role"
	"github.com/princesspalace/palace/internal/session"
)

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

func withSession(req *http.Request, s *session.Session) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), s))
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseEnvelope(t, w)["error"].(map[string]interface{})
	require.True(t, ok, "response should carry an error")
	return errObj["code"].(string)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

var (
	adminSession    = session.Static(accounts.Account{Email: "admin@palace.test", Role: role.Admin, DisplayName: "Admin"})
	waiterSession   = session.Static(accounts.Account{Email: "waiter@palace.test", Role: role.Waiter, DisplayName: "Karim"})
	customerSession = &session.Session{UID: "c1", Email: "rina@example.com", DisplayName: "Rina", Role: role.Customer}
)

// recordingBus collects published errors.
type recordingBus struct {
	mu   sync.Mutex
	errs []error
}

func (b *recordingBus) Publish(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, err)
}

func (b *recordingBus) published() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.errs...)
}
