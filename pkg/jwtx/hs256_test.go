package jwtx_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/applyhub/identity/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testClaims(now time.Time) jwtx.SessionClaims {
	return jwtx.NewSessionClaims(
		"01HQ345TESTACCOUNT0000000A",
		"jamie@example.com",
		"user",
		"Jamie Doe",
		jwtx.DefaultSessionTTL,
		"identity-test",
		now,
	)
}

func TestSecretLength(t *testing.T) {
	short := []byte("too-short")

	_, err := jwtx.NewSignerHS256(short)
	require.ErrorIs(t, err, jwtx.ErrSecretTooShort)

	_, err = jwtx.NewVerifierHS256(short)
	require.ErrorIs(t, err, jwtx.ErrSecretTooShort)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testSecret)
	require.NoError(t, err)

	now := time.Now()
	token, err := signer.Sign(testClaims(now))
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01HQ345TESTACCOUNT0000000A", claims.Subject)
	require.Equal(t, "jamie@example.com", claims.Email)
	require.Equal(t, "user", claims.Role)
	require.Equal(t, "Jamie Doe", claims.FullName)
	require.Equal(t, "identity-test", claims.Issuer)
	require.WithinDuration(t, now.Add(jwtx.DefaultSessionTTL), claims.ExpiresAt.Time, time.Second)
}

func TestVerifyRejectsTampering(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testSecret)
	require.NoError(t, err)

	token, err := signer.Sign(testClaims(time.Now()))
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewVerifierHS256([]byte("ffffffffffffffffffffffffffffffff"))
		require.NoError(t, err)

		_, err = other.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("altered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)

		payload, err := base64.RawURLEncoding.DecodeString(parts[1])
		require.NoError(t, err)
		forged := strings.Replace(string(payload), `"user"`, `"admin"`, 1)
		parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

		_, err = verifier.Verify(strings.Join(parts, "."))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("unsigned token", func(t *testing.T) {
		// alg "none" with a stripped signature must never pass.
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
		parts := strings.Split(token, ".")
		none := header + "." + parts[1] + "."

		_, err := verifier.Verify(none)
		require.Error(t, err)
	})
}

func TestVerifyMalformed(t *testing.T) {
	verifier, err := jwtx.NewVerifierHS256(testSecret)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":      "",
		"not a jwt":  "definitely-not-a-token",
		"two dots":   "..",
		"bad base64": "a.b.c",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(token)
			require.ErrorIs(t, err, jwtx.ErrMalformed)
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	issued := time.Now()
	token, err := signer.Sign(testClaims(issued))
	require.NoError(t, err)

	verifier, err := jwtx.NewVerifierHS256At(testSecret, func() time.Time {
		return issued.Add(jwtx.DefaultSessionTTL + time.Second)
	})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(testSecret)
	require.NoError(t, err)

	claims := testClaims(time.Now())
	claims.ExpiresAt = nil
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}
