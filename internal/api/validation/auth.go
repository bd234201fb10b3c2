package validation

import (
	"strings"

	"github.com/princesspalace/palace/internal/identity"
)

// SignInRequest mirrors the fields needed for sign-in validation.
type SignInRequest struct {
	Email    string
	Password string
}

// ValidateSignInRequest validates the fields of a sign-in request.
func ValidateSignInRequest(req SignInRequest) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(req.Email) == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}

	return errs
}

// RegisterRequest mirrors the fields needed for registration validation.
type RegisterRequest struct {
	DisplayName string
	Email       string
	Password    string
}

// ValidateRegisterRequest validates the fields of a registration request.
func ValidateRegisterRequest(req RegisterRequest) []FieldError {
	var errs []FieldError

	if !minLength(req.DisplayName, 2) {
		errs = append(errs, FieldError{Field: "displayName", Message: "Name is required."})
	}
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Invalid email address."})
	}
	if len(req.Password) < identity.MinPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 6 characters."})
	}

	return errs
}
