package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for session tokens. Sessions
// are never revoked server-side, so this stays short.
const DefaultSessionTTL = time.Hour

// SessionClaims are the self-contained session claims. The token is the
// only server-issued session state; middleware verifies it without a
// database round trip, so everything downstream handlers need lives here.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Email of the account at issuance.
	Email string `json:"email,omitempty"`

	// Role of the account at issuance ("user" or "admin").
	Role string `json:"role,omitempty"`

	// FullName is the display name, may be empty.
	FullName string `json:"full_name,omitempty"`
}

// NewSessionClaims builds minimally-correct session claims. Subject is the
// account id; expiry is now + ttl, both in UTC.
func NewSessionClaims(
	subject, email, role, fullName string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) SessionClaims {
	now = now.UTC()
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    email,
		Role:     role,
		FullName: fullName,
	}
}
