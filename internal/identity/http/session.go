package http

import (
	"net/http"

	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/slogx"
)

type SessionHandler struct {
	CookieSecure bool
}

// SessionResponse echoes the verified session claims. It is served
// straight from the token, no store lookup involved.
type SessionResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FullName  string `json:"full_name"`
	ExpiresAt int64  `json:"expires_at"`
}

// HandleGet handles GET /v1/session behind the required gate.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := SessionResponse{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		FullName:  claims.FullName,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /v1/session. It clears the cookie only; the
// token stays valid until it expires, there is no server-side revocation.
// The route sits behind the optional gate: a valid session makes the
// logout attributable, an invalid or absent one still clears the cookie.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if claims, ok := httpx.ClaimsFromContext(r.Context()); ok {
		slogx.FromContext(r.Context()).Info("session ended", "account_id", claims.Subject)
	}

	clearSessionCookie(w, h.CookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
