package auth

import "errors"

// Failure taxonomy crossed by the HTTP layer. Lower-level errors (jwt
// library errors, Redis connection errors) are translated here and never
// leak to clients.
var (
	// ErrValidation covers malformed or missing input.
	ErrValidation = errors.New("invalid request")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// secret; callers must not be able to tell which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is the single generic duplicate-registration signal.
	// It deliberately does not say whether username or email collided.
	ErrUserExists = errors.New("user already exists")
	// ErrTokenInvalid covers bad signatures, malformed tokens, and
	// refresh tokens absent from the revocation store. An
	// already-rotated token is reported identically to a forged one.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is distinguished from ErrTokenInvalid so clients
	// know to attempt a refresh rather than a new login.
	ErrTokenExpired = errors.New("token expired")
)
