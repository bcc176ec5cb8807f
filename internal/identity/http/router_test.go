package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/applyhub/identity/internal/identity/domain"
	"github.com/applyhub/identity/internal/identity/provider"
	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/internal/identity/store/drivers/sqlite"
	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a canned assertion for any code except "bad-code".
type fakeProvider struct {
	assertion domain.ProviderAssertion
}

func (p *fakeProvider) Name() string { return "google" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/consent?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (domain.ProviderAssertion, error) {
	if code == "bad-code" {
		return domain.ProviderAssertion{}, errors.New("exchange rejected")
	}
	return p.assertion, nil
}

type testEnv struct {
	router   *Router
	store    *sqlite.Store
	provider *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewSignerHS256([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	fake := &fakeProvider{assertion: domain.ProviderAssertion{
		SubjectID: "google-subject-1",
		Email:     "jamie@example.com",
		FullName:  "Jamie Doe",
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter("test", false, st, logger)
	r.Providers = provider.NewRegistry(fake)
	r.ReconcileService = &service.ReconcileService{Store: st}
	r.SessionService = &service.SessionService{
		Signer:   signer,
		Verifier: verifier,
		Issuer:   "identity-test",
	}
	r.CredentialsService = &service.CredentialsService{Store: st}
	r.AccountService = &service.AccountService{Store: st}
	r.ApplyRoutes()

	return &testEnv{router: r, store: st, provider: fake}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == httpx.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func decodeAccount(t *testing.T, rec *httptest.ResponseRecorder) AccountResponse {
	t.Helper()

	var resp AccountResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	t.Run("creates the account and logs it in", func(t *testing.T) {
		rec := env.postJSON("/v1/auth/register",
			`{"email":"sam@example.com","password":"correct horse","full_name":"Sam Roe"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decodeAccount(t, rec)
		require.Equal(t, "sam@example.com", resp.Email)
		require.Equal(t, "user", resp.Role)
		require.False(t, resp.Linked)

		cookie := sessionCookie(t, rec)
		require.NotEmpty(t, cookie.Value)
		require.True(t, cookie.HttpOnly)
	})

	t.Run("email taken", func(t *testing.T) {
		rec := env.postJSON("/v1/auth/register",
			`{"email":"sam@example.com","password":"another pass","full_name":"Sam Roe"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.JSONEq(t, `{"error":"email_taken"}`, rec.Body.String())
	})

	t.Run("weak password", func(t *testing.T) {
		rec := env.postJSON("/v1/auth/register",
			`{"email":"new@example.com","password":"tiny","full_name":"N"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"error":"weak_password"}`, rec.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := env.postJSON("/v1/auth/register", `{not json`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/v1/auth/register",
		`{"email":"sam@example.com","password":"correct horse","full_name":"Sam Roe"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("valid credentials", func(t *testing.T) {
		rec := env.postJSON("/v1/auth/login",
			`{"email":"sam@example.com","password":"correct horse"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, sessionCookie(t, rec).Value)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.postJSON("/v1/auth/login",
			`{"email":"sam@example.com","password":"wrong horse"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"invalid_credentials"}`, rec.Body.String())
	})

	t.Run("unknown email gets the same error", func(t *testing.T) {
		rec := env.postJSON("/v1/auth/login",
			`{"email":"nobody@example.com","password":"correct horse"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"invalid_credentials"}`, rec.Body.String())
	})
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/v1/auth/register",
		`{"email":"sam@example.com","password":"correct horse","full_name":"Sam Roe"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookie(t, rec)
	account := decodeAccount(t, rec)

	t.Run("get echoes the token claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		req.AddCookie(cookie)
		rec := env.do(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SessionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, account.ID, resp.AccountID)
		require.Equal(t, "sam@example.com", resp.Email)
		require.Equal(t, "user", resp.Role)
		require.NotZero(t, resp.ExpiresAt)
	})

	t.Run("get without a session is 401", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/session", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("delete clears the cookie without needing one", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodDelete, "/v1/session", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)

		cleared := sessionCookie(t, rec)
		require.Empty(t, cleared.Value)
		require.Negative(t, cleared.MaxAge)
	})

	t.Run("delete with a valid session also clears it", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/session", nil)
		req.AddCookie(cookie)
		rec := env.do(req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		cleared := sessionCookie(t, rec)
		require.Empty(t, cleared.Value)
	})
}

func TestPasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/v1/auth/register",
		`{"email":"sam@example.com","password":"correct horse","full_name":"Sam Roe"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookie(t, rec)

	put := func(body string, withCookie bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/v1/session/password", strings.NewReader(body))
		if withCookie {
			req.AddCookie(cookie)
		}
		return env.do(req)
	}

	t.Run("unauthenticated", func(t *testing.T) {
		rec := put(`{"current_password":"correct horse","new_password":"new password 1"}`, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong current password", func(t *testing.T) {
		rec := put(`{"current_password":"wrong horse","new_password":"new password 1"}`, true)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rotates and the new password works", func(t *testing.T) {
		rec := put(`{"current_password":"correct horse","new_password":"new password 1"}`, true)
		require.Equal(t, http.StatusNoContent, rec.Code)

		login := env.postJSON("/v1/auth/login",
			`{"email":"sam@example.com","password":"new password 1"}`)
		require.Equal(t, http.StatusOK, login.Code)
	})
}

func TestAdminEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash := "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"
	require.NoError(t, env.store.Accounts().CreateAccount(ctx, domain.Account{
		ID:           "01HQ345TESTACCOUNT0000000A",
		Email:        "user@example.com",
		PasswordHash: &hash,
		Role:         domain.RoleUser,
	}))

	issue := func(t *testing.T, role domain.Role) *http.Cookie {
		t.Helper()
		token, err := env.router.SessionService.Issue(domain.Account{
			ID:    "01HQ345TESTADMIN0000000000",
			Email: "ops@example.com",
			Role:  role,
		})
		require.NoError(t, err)
		return &http.Cookie{Name: httpx.SessionCookieName, Value: token}
	}

	get := func(cookie *http.Cookie, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/accounts/"+id, nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		return env.do(req)
	}

	t.Run("admin reads an account", func(t *testing.T) {
		rec := get(issue(t, domain.RoleAdmin), "01HQ345TESTACCOUNT0000000A")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user@example.com", decodeAccount(t, rec).Email)
	})

	t.Run("missing account is 404", func(t *testing.T) {
		rec := get(issue(t, domain.RoleAdmin), "01HQ345NOSUCHACCOUNT000000")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-admin session is 403", func(t *testing.T) {
		rec := get(issue(t, domain.RoleUser), "01HQ345TESTACCOUNT0000000A")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("anonymous is 401", func(t *testing.T) {
		rec := get(nil, "01HQ345TESTACCOUNT0000000A")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOAuthStart(t *testing.T) {
	env := newTestEnv(t)

	t.Run("redirects with the nonce and intent in state", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/google?signup=true", nil))
		require.Equal(t, http.StatusFound, rec.Code)

		loc := rec.Header().Get("Location")
		require.Contains(t, loc, "https://provider.example/consent?state=")

		var state *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "oauth_state" {
				state = c
			}
		}
		require.NotNil(t, state)
		require.Contains(t, loc, state.Value+".signup")
	})

	t.Run("unknown provider", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/auth/github", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOAuthCallback(t *testing.T) {
	callback := func(env *testEnv, intent, code string) *httptest.ResponseRecorder {
		start := env.do(httptest.NewRequest(http.MethodGet, "/auth/google", nil))
		var state *http.Cookie
		for _, c := range start.Result().Cookies() {
			if c.Name == "oauth_state" {
				state = c
			}
		}

		url := "/auth/google/callback?code=" + code + "&state=" + state.Value + "." + intent
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.AddCookie(state)
		return env.do(req)
	}

	t.Run("signup provisions and issues a session", func(t *testing.T) {
		env := newTestEnv(t)

		rec := callback(env, "signup", "good-code")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeAccount(t, rec)
		require.Equal(t, "jamie@example.com", resp.Email)
		require.True(t, resp.Linked)
		require.NotEmpty(t, sessionCookie(t, rec).Value)
	})

	t.Run("login without prior signup is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		rec := callback(env, "login", "good-code")
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.JSONEq(t, `{"error":"account_not_found"}`, rec.Body.String())
	})

	t.Run("login after signup succeeds", func(t *testing.T) {
		env := newTestEnv(t)

		require.Equal(t, http.StatusOK, callback(env, "signup", "good-code").Code)
		rec := callback(env, "login", "good-code")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing email claim", func(t *testing.T) {
		env := newTestEnv(t)
		env.provider.assertion.Email = ""

		rec := callback(env, "signup", "good-code")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"error":"missing_required_claim"}`, rec.Body.String())
	})

	t.Run("exchange failure", func(t *testing.T) {
		env := newTestEnv(t)

		rec := callback(env, "login", "bad-code")
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodGet,
			"/auth/google/callback?code=good-code&state=forged.login", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "expected"})
		rec := env.do(req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"error":"invalid_state"}`, rec.Body.String())
	})

	t.Run("missing state cookie", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(httptest.NewRequest(http.MethodGet,
			"/auth/google/callback?code=good-code&state=whatever.login", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRateLimiterFrontsSessionGate(t *testing.T) {
	env := newTestEnv(t)

	// Unauthenticated requests must still be charged against the limit,
	// otherwise the gated endpoints are free to probe.
	put := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/v1/session/password", strings.NewReader(`{}`))
		return env.do(req)
	}

	for range 5 {
		require.Equal(t, http.StatusUnauthorized, put().Code)
	}

	rec := put()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.JSONEq(t, `{"error":"rate_limit_exceeded"}`, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("livez", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/livez", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, "ok", resp.Status)
		require.Equal(t, "test", resp.Version)
	})

	t.Run("readyz reports the database", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.NotNil(t, resp.Checks)
		require.Equal(t, "ok", resp.Checks.Database)
	})

	t.Run("readyz degrades when the store is gone", func(t *testing.T) {
		isolated := newTestEnv(t)
		require.NoError(t, isolated.store.Close())

		rec := isolated.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
