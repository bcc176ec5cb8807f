package http

import (
	"net/http"
	"time"

	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/jwtx"
)

// setSessionCookie hands the issued token to the client. HTTP-only always;
// Secure is configuration so local development over plain HTTP still works.
func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie removes the session cookie. The token itself stays
// valid until expiry; logout is purely client-side.
func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionTTL returns the effective token lifetime used for cookie expiry.
func sessionTTL(s *service.SessionService) time.Duration {
	if s == nil || s.TTL <= 0 {
		return jwtx.DefaultSessionTTL
	}
	return s.TTL
}
