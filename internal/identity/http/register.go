package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/slogx"
)

type RegisterHandler struct {
	CredentialsService *service.CredentialsService
	SessionService     *service.SessionService
	CookieSecure       bool
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// ServeHTTP handles POST /v1/auth/register: creates a password-backed
// account and logs it in immediately.
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	account, err := h.CredentialsService.Register(ctx, req.Email, req.Password, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			writeError(w, http.StatusConflict, "email_taken")
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "weak_password")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "invalid_request")
		default:
			log.Error("registration failed", "err", err)
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
	httpx.WriteJSON(w, http.StatusCreated, newAccountResponse(account))
}
