package http

import (
	"errors"
	"net/http"

	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/internal/identity/store"
	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/slogx"
)

// AdminAccountsHandler serves account lookups for the admin console. It
// sits behind the required gate plus the admin role check; a non-admin
// session gets a 403 from the middleware before reaching here.
type AdminAccountsHandler struct {
	AccountService *service.AccountService
}

// HandleGet handles GET /v1/admin/accounts/{id}.
func (h *AdminAccountsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	account, err := h.AccountService.GetAccountByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		log.Error("account lookup failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newAccountResponse(account))
}
