package auth

import (
	"context"
	"errors"
	"testing"
)

func newTestService() *Service {
	return NewService(NewMemoryUserStore(), testSecret, 0)
}

func TestServiceRegister(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" {
		t.Error("expected generated user ID")
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked from Register")
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("token subject = %q, want %q", claims.Subject, user.ID)
	}
}

func TestServiceRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"short password", "bob", "12345", ErrWeakPassword},
		{"empty username", "", "hunter22", ErrInvalidUsername},
		{"username with spaces", "bob smith", "hunter22", ErrInvalidUsername},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tc.username, "x@example.com", tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestServiceRegisterDuplicate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "alice", "other@example.com", "hunter22"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestServiceAuthenticate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, token, err := svc.Authenticate(ctx, "alice", "hunter22")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("user ID = %q, want %q", user.ID, registered.ID)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked from Authenticate")
	}
	if token == "" {
		t.Error("expected a signed token")
	}
}

func TestServiceAuthenticateFailClosed(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unknown user and wrong password must yield the same error.
	if _, _, err := svc.Authenticate(ctx, "nobody", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestServiceRegisterDistinctIDs(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	alice, _, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	bob, _, err := svc.Register(ctx, "bob", "bob@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register bob: %v", err)
	}
	if alice.ID == bob.ID {
		t.Fatalf("both accounts share ID %q", alice.ID)
	}

	// Both accounts must remain retrievable; neither overwrote the other.
	for _, id := range []string{alice.ID, bob.ID} {
		if _, err := svc.GetUser(ctx, id); err != nil {
			t.Errorf("GetUser(%q): %v", id, err)
		}
	}
}
