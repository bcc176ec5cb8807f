package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted HMAC secret size in bytes.
// Anything shorter than the HS256 block makes brute-forcing the signature
// cheaper than stealing the secret.
const MinSecretLength = 32

var (
	ErrSecretTooShort = errors.New("jwtx: secret too short")

	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
)

// Signer signs session claims into a compact token string.
type Signer interface {
	Sign(SessionClaims) (string, error)
}

// Verifier validates a token and gives you back the claims if it's legit.
// Expiry is part of verification: an expired token is as invalid as a
// tampered one.
type Verifier interface {
	Verify(token string) (SessionClaims, error)
}

// HS256Signer signs tokens with a process-wide symmetric secret. The secret
// is explicit construction input, there is no default.
type HS256Signer struct {
	secret []byte
}

func NewSignerHS256(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	return &HS256Signer{secret: secret}, nil
}

func (s *HS256Signer) Sign(claims SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// HS256Verifier verifies tokens signed by HS256Signer with the same secret.
type HS256Verifier struct {
	secret []byte

	// now overrides the clock used for exp validation; nil means time.Now.
	now func() time.Time
}

func NewVerifierHS256(secret []byte) (*HS256Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	return &HS256Verifier{secret: secret}, nil
}

// NewVerifierHS256At is NewVerifierHS256 with an explicit clock, for tests
// that need to verify at a chosen instant.
func NewVerifierHS256At(secret []byte, now func() time.Time) (*HS256Verifier, error) {
	v, err := NewVerifierHS256(secret)
	if err != nil {
		return nil, err
	}
	v.now = now
	return v, nil
}

func (v *HS256Verifier) Verify(tokenString string) (SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.now != nil {
		opts = append(opts, jwt.WithTimeFunc(v.now))
	}

	var claims SessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)

	switch {
	case err == nil && token.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return SessionClaims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return SessionClaims{}, ErrInvalidSig
	default:
		return SessionClaims{}, ErrMalformed
	}
}
