package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service implements account registration and login on top of a UserStore.
// It owns the token secret so handlers never touch raw key material.
type Service struct {
	store  UserStore
	secret string
	ttl    time.Duration
}

// NewService creates an auth service. A ttl of zero issues non-expiring tokens.
func NewService(store UserStore, secret string, ttl time.Duration) *Service {
	return &Service{store: store, secret: secret, ttl: ttl}
}

// Register creates a new account and returns it alongside a signed token.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, string, error) {
	if !IsValidUsername(username) {
		return nil, "", ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return nil, "", ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	// The service assigns the ID so every store implementation persists the
	// same record; the ID is also the token subject.
	user := &User{
		ID:           "usr-" + uuid.NewString()[:8],
		Username:     username,
		DisplayName:  username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := IssueToken(user, s.secret, s.ttl)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

// Authenticate verifies a username/password pair and returns the account with
// a fresh token. Unknown usernames and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("looking up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, "", ErrInvalidCredentials
	}

	token, err := IssueToken(user, s.secret, s.ttl)
	if err != nil {
		return nil, "", err
	}

	user.PasswordHash = ""
	return user, token, nil
}

// Verify validates a signed token and returns its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	return VerifyToken(tokenString, s.secret)
}

// GetUser returns the account for the given ID without its password hash.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}
