package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() *User {
	return &User{
		ID:       "usr-11112222",
		Username: "meter-alpha",
		Email:    "alpha@example.com",
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := VerifyToken(token, testSecret)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}

	if claims.Subject != "usr-11112222" {
		t.Errorf("subject = %q, want usr-11112222", claims.Subject)
	}
	if claims.Username != "meter-alpha" {
		t.Errorf("username = %q, want meter-alpha", claims.Username)
	}
	if claims.Email != "alpha@example.com" {
		t.Errorf("email = %q, want alpha@example.com", claims.Email)
	}
	if claims.ExpiresAt == nil {
		t.Error("expected expiry claim when ttl > 0")
	}
}

func TestIssueTokenWithoutTTL(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := VerifyToken(token, testSecret)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.ExpiresAt != nil {
		t.Error("expected no expiry claim when ttl is zero")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := VerifyToken(token, "ffffffffffffffffffffffffffffffff"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyTokenRejectsTampered(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d segments", len(parts))
	}
	tampered := parts[0] + ".eyJzdWIiOiJ1c3ItZXZpbCJ9." + parts[2]

	if _, err := VerifyToken(tampered, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := VerifyToken(token, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := VerifyToken(tok, testSecret); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("VerifyToken(%q): expected ErrTokenInvalid, got %v", tok, err)
		}
	}
}
