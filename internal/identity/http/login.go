package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/slogx"
)

type LoginHandler struct {
	CredentialsService *service.CredentialsService
	SessionService     *service.SessionService
	CookieSecure       bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP handles POST /v1/auth/login: checks the email+password pair
// and issues the session cookie.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	account, err := h.CredentialsService.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		log.Error("login failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
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
