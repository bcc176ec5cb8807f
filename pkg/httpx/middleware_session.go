package httpx

import (
	"net/http"

	"github.com/applyhub/identity/pkg/jwtx"
	"github.com/applyhub/identity/pkg/slogx"
)

// SessionCookieName is the cookie carrying the session token. Issuance and
// verification must agree on this name.
const SessionCookieName = "token"

// RequireSession admits only requests carrying a valid session cookie and
// attaches the claims to the request context. Absent, expired, tampered and
// malformed tokens all get the same uniform 401; the distinction is logged
// server-side only.
func RequireSession(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := sessionTokenFromRequest(r)
			if !ok {
				writeAuthError(w)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("session verify failed", "err", err)
				writeAuthError(w)
				return
			}

			ctx = contextWithSession(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession attaches claims when a valid session cookie is present
// and otherwise lets the request through untouched. It never blocks.
func OptionalSession(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := sessionTokenFromRequest(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := contextWithSession(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionTokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func writeAuthError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error": "unauthorized",
	})
}
