package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/slogx"
)

type PasswordHandler struct {
	CredentialsService *service.CredentialsService
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ServeHTTP handles PUT /v1/session/password behind the required gate.
func (h *PasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	accountID, ok := httpx.AccountIDFromContext(ctx)
	if !ok || accountID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	err := h.CredentialsService.UpdatePassword(ctx, accountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "weak_password")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusForbidden, "invalid_credentials")
		default:
			log.Error("password update failed", "account_id", accountID, "err", err)
			writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
