package http

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/applyhub/identity/internal/identity/domain"
	"github.com/applyhub/identity/internal/identity/provider"
	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/slogx"
)

const stateCookieName = "oauth_state"

// OAuthHandler owns the provider round trip: it sends the browser to the
// provider with the signup intent folded into the state parameter, and on
// callback verifies the exchange, reconciles the assertion to an account
// and issues the session cookie.
type OAuthHandler struct {
	Providers        *provider.Registry
	ReconcileService *service.ReconcileService
	SessionService   *service.SessionService
	CookieSecure     bool
}

// HandleStart redirects to the provider consent page. A `signup=true`
// query parameter marks the flow as an explicit signup request.
func (h *OAuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	p, err := h.Providers.Get(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_provider")
		return
	}

	intent := domain.IntentLogin
	if r.URL.Query().Get("signup") == "true" {
		intent = domain.IntentSignup
	}

	nonce, err := newStateNonce()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	// The nonce goes into a short-lived cookie; the callback only accepts
	// a state echoing it. The intent rides along in the state so the
	// engine receives it as an explicit input.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    nonce,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.AuthCodeURL(nonce+"."+string(intent)), http.StatusFound)
}

// HandleCallback finishes the provider flow.
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, err := h.Providers.Get(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_provider")
		return
	}

	intent, ok := h.consumeState(w, r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_code")
		return
	}

	assertion, err := p.Exchange(ctx, code)
	if err != nil {
		log.Warn("provider exchange failed", "provider", p.Name(), "err", err)
		writeError(w, http.StatusBadGateway, "provider_exchange_failed")
		return
	}

	account, err := h.resolveWithRetry(ctx, assertion, intent)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingClaim):
			writeError(w, http.StatusBadRequest, "missing_required_claim")
		case errors.Is(err, service.ErrAccountNotFound):
			// Policy rejection, not an error: login without a prior
			// signup. The frontend sends the user to the signup path.
			writeError(w, http.StatusForbidden, "account_not_found")
		default:
			log.Error("reconciliation failed", "provider", p.Name(), "err", err)
			writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		}
		return
	}

	token, err := h.SessionService.Issue(account)
	if err != nil {
		log.Error("session issuance failed", "account_id", account.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	setSessionCookie(w, token, sessionTTL(h.SessionService), h.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, newAccountResponse(account))
}

// resolveWithRetry runs reconciliation with the one permitted retry on a
// transient conflict. A conflict that survives the retry is reported as
// infrastructure failure.
func (h *OAuthHandler) resolveWithRetry(
	ctx context.Context,
	assertion domain.ProviderAssertion,
	intent domain.Intent,
) (domain.Account, error) {
	account, err := h.ReconcileService.Resolve(ctx, assertion, intent)
	if !errors.Is(err, service.ErrConflictRetry) {
		return account, err
	}

	account, err = h.ReconcileService.Resolve(ctx, assertion, intent)
	if errors.Is(err, service.ErrConflictRetry) {
		return domain.Account{}, fmt.Errorf("%w: conflict persisted after retry", service.ErrStoreUnavailable)
	}
	return account, err
}

func newStateNonce() (string, error) {
	var b [18]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// consumeState validates the state parameter against the state cookie and
// extracts the carried intent. The cookie is cleared either way.
func (h *OAuthHandler) consumeState(w http.ResponseWriter, r *http.Request) (domain.Intent, bool) {
	defer http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	state := r.URL.Query().Get("state")
	nonce, intent, ok := strings.Cut(state, ".")
	if !ok || nonce != cookie.Value {
		return "", false
	}

	switch domain.Intent(intent) {
	case domain.IntentLogin, domain.IntentSignup:
		return domain.Intent(intent), true
	}
	return "", false
}
