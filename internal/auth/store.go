package auth

import (
	"context"
	"sync"
	"time"
)

// UserStore persists dashboard accounts. Implementations must map duplicate
// usernames or emails to ErrUserExists and missing records to ErrUserNotFound.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

// MemoryUserStore is a mutex-guarded in-memory UserStore. Used in tests and
// when the service runs without a database path configured.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by ID
}

// NewMemoryUserStore returns an empty in-memory store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*User)}
}

// Create stores a new user, rejecting duplicate usernames or emails.
func (s *MemoryUserStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return ErrUserExists
		}
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	clone := *user
	s.users[user.ID] = &clone
	return nil
}

// GetByID returns the user with the given ID.
func (s *MemoryUserStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

// GetByUsername returns the user with the given username.
func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

// List returns all users.
func (s *MemoryUserStore) List(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		clone := *user
		out = append(out, &clone)
	}
	return out, nil
}
