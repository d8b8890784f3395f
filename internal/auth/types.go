package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// User represents a dashboard account.
//
// The same account also identifies reporting devices: the token issued at
// login/registration carries the user ID that the monitor registry keys
// telemetry under.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials is returned for both unknown usernames and wrong
	// passwords, so callers cannot distinguish the two cases.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUserNotFound is returned when a user ID or username does not exist.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrUserExists is returned when the username or email is already taken.
	ErrUserExists = errors.New("auth: username or email already exists")

	// ErrTokenInvalid is returned for malformed, tampered, or unverifiable tokens.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrWeakPassword is returned when a password is shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("auth: password too short")

	// ErrInvalidUsername is returned when a username fails format validation.
	ErrInvalidUsername = errors.New("auth: invalid username")
)
