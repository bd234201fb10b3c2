package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princesspalace/palace/internal/api/handler"
	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/identity"
	"github.com/princesspalace/palace/internal/role"
	"github.com/princesspalace/palace/internal/session"
)

// --- Mock Sessions ---

type mockSessions struct {
	signInFn   func(ctx context.Context, clientID, email, password, deepLink string) (*session.SignInResult, error)
	registerFn func(ctx context.Context, displayName, email, password string) (string, error)
	signOutFn  func(ctx context.Context, clientID string) (string, error)
	resolveFn  func(ctx context.Context, clientID string) (*session.Session, error)
}

func (m *mockSessions) SignIn(ctx context.Context, clientID, email, password, deepLink string) (*session.SignInResult, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, clientID, email, password, deepLink)
	}
	return nil, &session.AuthError{}
}

func (m *mockSessions) Register(ctx context.Context, displayName, email, password string) (string, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, displayName, email, password)
	}
	return "Account created successfully! You can now log in.", nil
}

func (m *mockSessions) SignOut(ctx context.Context, clientID string) (string, error) {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, clientID)
	}
	return role.LoginPath, nil
}

func (m *mockSessions) Resolve(ctx context.Context, clientID string) (*session.Session, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, clientID)
	}
	return nil, nil
}

func authRequest(t *testing.T, path string, body interface{}) (*http.Request, *httptest.ResponseRecorder) {
	req, w := makeChiRequest(http.MethodPost, path, mustJSON(t, body), nil)
	return req.WithContext(middleware.WithClientID(req.Context(), "client-1")), w
}

// ===== POST /auth/signin =====

func TestSignIn_StaticAccount(t *testing.T) {
	sessions := &mockSessions{signInFn: func(_ context.Context, clientID, email, password, deepLink string) (*session.SignInResult, error) {
		assert.Equal(t, "client-1", clientID)
		assert.Equal(t, "waiter@palace.test", email)
		assert.Equal(t, "/orders", deepLink)
		return &session.SignInResult{Session: waiterSession, Redirect: "/orders"}, nil
	}}
	h := handler.NewAuthHandler(sessions, time.Second)

	req, w := authRequest(t, "/auth/signin", map[string]string{
		"email": " waiter@palace.test ", "password": "waiter-pass", "redirect": "/orders",
	})
	h.SignIn(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/orders", data["redirect"])
	s := data["session"].(map[string]interface{})
	assert.Equal(t, "waiter", s["role"])
	assert.Equal(t, true, s["static"])
	assert.Equal(t, "Karim", s["displayName"])
}

func TestSignIn_CloudAccountWaitsForResolution(t *testing.T) {
	sessions := &mockSessions{
		signInFn: func(context.Context, string, string, string, string) (*session.SignInResult, error) {
			return &session.SignInResult{Pending: true, Redirect: "/dashboard"}, nil
		},
		resolveFn: func(ctx context.Context, clientID string) (*session.Session, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return customerSession, nil
		},
	}
	h := handler.NewAuthHandler(sessions, time.Second)

	req, w := authRequest(t, "/auth/signin", map[string]string{"email": "rina@example.com", "password": "secret1"})
	h.SignIn(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/dashboard", data["redirect"])
	s := data["session"].(map[string]interface{})
	assert.Equal(t, "c1", s["uid"])
	assert.Equal(t, false, s["static"])
}

func TestSignIn_CloudStaffKeepsComputedRedirect(t *testing.T) {
	cloudAdmin := &session.Session{UID: "u-9", Email: "manager@example.com", DisplayName: "Manager", Role: role.Admin}
	sessions := &mockSessions{
		signInFn: func(context.Context, string, string, string, string) (*session.SignInResult, error) {
			return &session.SignInResult{Pending: true, Redirect: "/dashboard"}, nil
		},
		resolveFn: func(context.Context, string) (*session.Session, error) {
			return cloudAdmin, nil
		},
	}
	h := handler.NewAuthHandler(sessions, time.Second)

	req, w := authRequest(t, "/auth/signin", map[string]string{"email": "manager@example.com", "password": "secret1"})
	h.SignIn(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/dashboard", data["redirect"])
	s := data["session"].(map[string]interface{})
	assert.Equal(t, "admin", s["role"])
	assert.Equal(t, false, s["static"])
}

func TestSignIn_CloudAccountResolveTimesOut(t *testing.T) {
	signedOut := false
	sessions := &mockSessions{
		signInFn: func(context.Context, string, string, string, string) (*session.SignInResult, error) {
			return &session.SignInResult{Pending: true}, nil
		},
		resolveFn: func(context.Context, string) (*session.Session, error) {
			return nil, context.DeadlineExceeded
		},
		signOutFn: func(context.Context, string) (string, error) {
			signedOut = true
			return role.LoginPath, nil
		},
	}
	h := handler.NewAuthHandler(sessions, time.Millisecond)

	req, w := authRequest(t, "/auth/signin", map[string]string{"email": "rina@example.com", "password": "secret1"})
	h.SignIn(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SESSION_UNAVAILABLE", errorCode(t, w))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.False(t, signedOut)
}

func TestSignIn_CloudAccountSettlesAnonymous(t *testing.T) {
	var signedOut string
	sessions := &mockSessions{
		signInFn: func(context.Context, string, string, string, string) (*session.SignInResult, error) {
			return &session.SignInResult{Pending: true, Redirect: "/dashboard"}, nil
		},
		resolveFn: func(context.Context, string) (*session.Session, error) {
			return nil, nil
		},
		signOutFn: func(_ context.Context, clientID string) (string, error) {
			signedOut = clientID
			return role.LoginPath, nil
		},
	}
	h := handler.NewAuthHandler(sessions, time.Second)

	req, w := authRequest(t, "/auth/signin", map[string]string{"email": "rina@example.com", "password": "secret1"})
	h.SignIn(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SESSION_NOT_ESTABLISHED", errorCode(t, w))
	assert.Empty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "client-1", signedOut)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	h := handler.NewAuthHandler(&mockSessions{}, time.Second)

	req, w := authRequest(t, "/auth/signin", map[string]string{"email": "rina@example.com", "password": "wrong"})
	h.SignIn(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := parseEnvelope(t, w)
	errObj := env["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_CREDENTIALS", errObj["code"])
	assert.Equal(t, "Invalid email or password", errObj["message"])
}

func TestSignIn_ValidationError(t *testing.T) {
	h := handler.NewAuthHandler(&mockSessions{}, time.Second)

	req, w := authRequest(t, "/auth/signin", map[string]string{"email": "not-an-email"})
	h.SignIn(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestSignIn_InvalidJSON(t *testing.T) {
	h := handler.NewAuthHandler(&mockSessions{}, time.Second)

	req, w := makeChiRequest(http.MethodPost, "/auth/signin", []byte("{"), nil)
	h.SignIn(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_JSON", errorCode(t, w))
}

// ===== POST /auth/register =====

func TestRegister_Success(t *testing.T) {
	var gotName string
	sessions := &mockSessions{registerFn: func(_ context.Context, displayName, email, password string) (string, error) {
		gotName = displayName
		return "Account created successfully! You can now log in.", nil
	}}
	h := handler.NewAuthHandler(sessions, time.Second)

	req, w := authRequest(t, "/auth/register", map[string]string{
		"displayName": " Rina ", "email": "rina@example.com", "password": "secret1",
	})
	h.Register(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Rina", gotName)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Account created successfully! You can now log in.", data["message"])
}

func TestRegister_EmailInUse(t *testing.T) {
	sessions := &mockSessions{registerFn: func(context.Context, string, string, string) (string, error) {
		return "", &session.RegistrationError{
			Message: "This email is already in use. Please try another email or log in.",
			Err:     identity.ErrEmailInUse,
		}
	}}
	h := handler.NewAuthHandler(sessions, time.Second)

	req, w := authRequest(t, "/auth/register", map[string]string{
		"displayName": "Rina", "email": "rina@example.com", "password": "secret1",
	})
	h.Register(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_IN_USE", errorCode(t, w))
}

func TestRegister_Failure(t *testing.T) {
	sessions := &mockSessions{registerFn: func(context.Context, string, string, string) (string, error) {
		return "", errors.New("db down")
	}}
	h := handler.NewAuthHandler(sessions, time.Second)

	req, w := authRequest(t, "/auth/register", map[string]string{
		"displayName": "Rina", "email": "rina@example.com", "password": "secret1",
	})
	h.Register(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	h := handler.NewAuthHandler(&mockSessions{}, time.Second)

	req, w := authRequest(t, "/auth/register", map[string]string{
		"displayName": "Rina", "email": "rina@example.com", "password": "123",
	})
	h.Register(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := parseEnvelope(t, w)["error"].(map[string]interface{})["details"].([]interface{})
	require.Len(t, details, 1)
	assert.Equal(t, "password", details[0].(map[string]interface{})["field"])
}

// ===== POST /auth/signout =====

func TestSignOut(t *testing.T) {
	var gotClient string
	sessions := &mockSessions{signOutFn: func(_ context.Context, clientID string) (string, error) {
		gotClient = clientID
		return role.LoginPath, nil
	}}
	h := handler.NewAuthHandler(sessions, time.Second)

	req, w := authRequest(t, "/auth/signout", map[string]string{})
	h.SignOut(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "client-1", gotClient)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/login", data["redirect"])
}
