package service

import (
	"errors"
	"time"

	"github.com/applyhub/identity/internal/identity/domain"
	"github.com/applyhub/identity/pkg/jwtx"
)

// ErrInvalidSession is the single verification failure callers see.
// Expired, tampered and malformed tokens are deliberately
// indistinguishable so clients get no oracle to probe.
var ErrInvalidSession = errors.New("invalid_session")

// SessionService issues and verifies self-contained session tokens. It is
// stateless: a pure function of secret, payload and clock. Tokens are
// never revoked server-side; expiry is their only death, which trades
// revocation for availability and zero lookup cost on the hot path.
type SessionService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string
	TTL      time.Duration // defaults to jwtx.DefaultSessionTTL when zero
}

// Issue signs a session token embedding the account's identity claims,
// expiring at now + TTL.
func (s *SessionService) Issue(account domain.Account) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(
		account.ID,
		account.Email,
		string(account.Role),
		account.FullName,
		ttl,
		s.Issuer,
		time.Now(),
	)
	return s.Signer.Sign(claims)
}

// Verify checks signature and expiry and returns the embedded claims.
// Every failure mode collapses into ErrInvalidSession.
func (s *SessionService) Verify(token string) (jwtx.SessionClaims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return jwtx.SessionClaims{}, ErrInvalidSession
	}
	return claims, nil
}
