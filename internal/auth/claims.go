package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried by GridWatch access tokens. The subject is
// the user ID; username and email ride along so the dashboard can render a
// session without a store lookup.
type Claims struct {
	jwt.RegisteredClaims

	Username string `json:"username"`
	Email    string `json:"email"`
}

// IssueToken signs an HS256 token for the given user. A ttl of zero issues
// a token with no expiry claim, which suits long-lived reporting devices
// that authenticate once at provisioning time.
func IssueToken(user *User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Username: user.Username,
		Email:    user.Email,
	}
	// Only ttl == 0 means "no expiry"; a negative ttl must produce an
	// already-expired token, not an eternal one.
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a signed token, rejecting anything not
// signed with HS256 under the given secret. Expiry is enforced only when
// the token carries an exp claim.
func VerifyToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}
