package session

import "errors"

const (
	invalidCredentialsMessage = "Invalid email or password"
	emailInUseMessage         = "This email is already in use. Please try another email or log in."
	registrationFailedMessage = "An unexpected error occurred."
	registeredMessage         = "Account created successfully! You can now log in."
)

// AuthError is a failed sign-in. Its message never reveals which
// credential source rejected the attempt.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return invalidCredentialsMessage
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RegistrationError is a failed account creation with a user-facing message.
type RegistrationError struct {
	Message string
	Err     error
}

func (e *RegistrationError) Error() string {
	return e.Message
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
