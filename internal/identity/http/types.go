package http

import (
	"net/http"

	"github.com/applyhub/identity/internal/identity/domain"
	"github.com/applyhub/identity/pkg/httpx"
)

// AccountResponse is the external representation of an account. The
// password hash and raw provider subject never leave the service.
type AccountResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Linked   bool   `json:"linked"`
}

func newAccountResponse(a domain.Account) AccountResponse {
	return AccountResponse{
		ID:       a.ID,
		Email:    a.Email,
		FullName: a.FullName,
		Role:     string(a.Role),
		Linked:   a.Linked(),
	}
}

// HealthResponse is shared by the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

func writeError(w http.ResponseWriter, code int, slug string) {
	httpx.WriteJSON(w, code, map[string]string{"error": slug})
}
