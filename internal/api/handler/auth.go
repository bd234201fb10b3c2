package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
	"github.com/princesspalace/palace/internal/api/validation"
	"github.com/princesspalace/palace/internal/identity"
	"github.com/princesspalace/palace/internal/role"
	"github.com/princesspalace/palace/internal/session"
)

// Sessions is the session manager as used by the HTTP layer.
type Sessions interface {
	SignIn(ctx context.Context, clientID, email, password, deepLink string) (*session.SignInResult, error)
	Register(ctx context.Context, displayName, email, password string) (string, error)
	SignOut(ctx context.Context, clientID string) (string, error)
	Resolve(ctx context.Context, clientID string) (*session.Session, error)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect string `json:"redirect"`
}

type registerRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type sessionResponse struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        role.Role `json:"role"`
	Static      bool      `json:"static"`
}

type signInResponse struct {
	Session  *sessionResponse `json:"session"`
	Redirect string           `json:"redirect"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

// AuthHandler handles sign-in, registration and sign-out.
type AuthHandler struct {
	sessions Sessions
	timeout  time.Duration
}

// NewAuthHandler creates a new AuthHandler. timeout bounds the wait for a
// cloud session to resolve after sign-in.
func NewAuthHandler(sessions Sessions, timeout time.Duration) *AuthHandler {
	return &AuthHandler{sessions: sessions, timeout: timeout}
}

// SignIn handles POST /auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateSignInRequest(validation.SignInRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	clientID := middleware.GetClientID(r.Context())
	res, err := h.sessions.SignIn(r.Context(), clientID, strings.TrimSpace(req.Email), req.Password, req.Redirect)
	if err != nil {
		if session.IsAuthError(err) {
			response.Err(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), requestID)
			return
		}
		middleware.Logger(r.Context()).Error("failed to sign in", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to sign in", requestID)
		return
	}

	s := res.Session
	if res.Pending {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		s, err = h.sessions.Resolve(ctx, clientID)
		cancel()
		if err != nil {
			middleware.Logger(r.Context()).Error("failed to resolve session after sign-in", "error", err)
			response.Unavailable(w, "SESSION_UNAVAILABLE", "Session could not be resolved", h.timeout, requestID)
			return
		}
		if s == nil {
			// The provider accepted the credentials but the tracker settled
			// anonymous, so drop the provider binding before reporting failure.
			if _, err := h.sessions.SignOut(r.Context(), clientID); err != nil {
				middleware.Logger(r.Context()).Error("failed to sign out unresolved client", "error", err)
			}
			middleware.Logger(r.Context()).Warn("sign-in settled anonymous", "clientId", clientID)
			response.Err(w, http.StatusUnauthorized, "SESSION_NOT_ESTABLISHED", "Your account could not be loaded. Please try again.", requestID)
			return
		}
	}

	middleware.Logger(r.Context()).Info("signed in", "clientId", clientID, "static", res.Session != nil)
	response.Success(w, http.StatusOK, signInResponse{Session: toSessionResponse(s), Redirect: res.Redirect}, requestID)
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateRegisterRequest(validation.RegisterRequest{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
	})
	if len(fieldErrors) > 0 {
		response.ValidationErr(w, fieldErrors, requestID)
		return
	}

	msg, err := h.sessions.Register(r.Context(), strings.TrimSpace(req.DisplayName), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		var regErr *session.RegistrationError
		switch {
		case errors.Is(err, identity.ErrEmailInUse):
			response.Err(w, http.StatusConflict, "EMAIL_IN_USE", err.Error(), requestID)
		case errors.As(err, &regErr):
			middleware.Logger(r.Context()).Error("failed to register", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", regErr.Message, requestID)
		default:
			middleware.Logger(r.Context()).Error("failed to register", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred.", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, messageResponse{Message: msg}, requestID)
}

// SignOut handles POST /auth/signout.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	redirect, err := h.sessions.SignOut(r.Context(), middleware.GetClientID(r.Context()))
	if err != nil {
		middleware.Logger(r.Context()).Error("failed to sign out", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to sign out", requestID)
		return
	}

	response.Success(w, http.StatusOK, redirectResponse{Redirect: redirect}, requestID)
}

func toSessionResponse(s *session.Session) *sessionResponse {
	if s == nil {
		return nil
	}
	return &sessionResponse{
		UID:         s.UID,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		Role:        s.Role,
		Static:      s.IsStatic(),
	}
}
