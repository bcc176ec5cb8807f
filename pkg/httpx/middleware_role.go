package httpx

import "net/http"

// RequireRole enforces role membership after the session gate. A request
// with no attached claims is an authentication failure (401); attached
// claims with the wrong role are an authorization failure (403). The two
// must stay externally distinguishable.
func RequireRole(required string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := roleFromContext(r.Context())
			if role == "" {
				writeAuthError(w)
				return
			}
			if role != required {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error": "forbidden",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
