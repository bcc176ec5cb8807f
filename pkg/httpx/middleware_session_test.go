package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// stubVerifier accepts exactly one token value and returns fixed claims.
type stubVerifier struct {
	accept string
	claims jwtx.SessionClaims
}

func (v *stubVerifier) Verify(token string) (jwtx.SessionClaims, error) {
	if token != v.accept {
		return jwtx.SessionClaims{}, errors.New("invalid_session")
	}
	return v.claims, nil
}

func newStubVerifier(role string) *stubVerifier {
	claims := jwtx.NewSessionClaims(
		"01HQ345TESTACCOUNT0000000A",
		"jamie@example.com",
		role,
		"Jamie Doe",
		jwtx.DefaultSessionTTL,
		"identity-test",
		time.Now(),
	)
	return &stubVerifier{accept: "good-token", claims: claims}
}

func doRequest(t *testing.T, h http.Handler, cookie string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: httpx.SessionCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireSession(t *testing.T) {
	verifier := newStubVerifier("user")

	var gotID string
	handler := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = httpx.AccountIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}), httpx.RequireSession(verifier))

	t.Run("valid cookie passes and attaches claims", func(t *testing.T) {
		rec := doRequest(t, handler, "good-token")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "01HQ345TESTACCOUNT0000000A", gotID)
	})

	t.Run("missing cookie", func(t *testing.T) {
		rec := doRequest(t, handler, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	})

	t.Run("invalid token gets the same response", func(t *testing.T) {
		rec := doRequest(t, handler, "bad-token")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	})
}

func TestOptionalSession(t *testing.T) {
	verifier := newStubVerifier("user")

	handler := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := httpx.ClaimsFromContext(r.Context()); ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}), httpx.OptionalSession(verifier))

	t.Run("valid cookie attaches claims", func(t *testing.T) {
		rec := doRequest(t, handler, "good-token")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing cookie still passes", func(t *testing.T) {
		rec := doRequest(t, handler, "")
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("invalid cookie passes without claims", func(t *testing.T) {
		rec := doRequest(t, handler, "bad-token")
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("matching role passes", func(t *testing.T) {
		handler := httpx.Chain(ok,
			httpx.RequireSession(newStubVerifier("admin")),
			httpx.RequireRole("admin"),
		)
		rec := doRequest(t, handler, "good-token")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("authenticated but wrong role is 403", func(t *testing.T) {
		handler := httpx.Chain(ok,
			httpx.RequireSession(newStubVerifier("user")),
			httpx.RequireRole("admin"),
		)
		rec := doRequest(t, handler, "good-token")
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
	})

	t.Run("unauthenticated is 401, not 403", func(t *testing.T) {
		handler := httpx.Chain(ok, httpx.RequireRole("admin"))
		rec := doRequest(t, handler, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
