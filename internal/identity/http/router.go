package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/applyhub/identity/internal/identity/provider"
	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/internal/identity/store"
	"github.com/applyhub/identity/pkg/httpx"
	"github.com/applyhub/identity/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	cookieSecure bool
	logger       *slog.Logger

	store store.Store

	Providers          *provider.Registry
	ReconcileService   *service.ReconcileService
	SessionService     *service.SessionService
	CredentialsService *service.CredentialsService
	AccountService     *service.AccountService
}

func NewRouter(
	buildVersion string,
	cookieSecure bool,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		cookieSecure: cookieSecure,
		store:        st,
		logger:       logger,
	}

	// Default middleware chain applied to every request.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth()
	r.registerCredentials()
	r.registerSession()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth() {
	h := &OAuthHandler{
		Providers:        r.Providers,
		ReconcileService: r.ReconcileService,
		SessionService:   r.SessionService,
		CookieSecure:     r.cookieSecure,
	}

	// Consent redirect is cheap; the callback performs the exchange and
	// reconciliation, so it gets the strict limit.
	r.Mux.Handle("GET /auth/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /auth/{provider}/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerCredentials() {
	login := &LoginHandler{
		CredentialsService: r.CredentialsService,
		SessionService:     r.SessionService,
		CookieSecure:       r.cookieSecure,
	}
	register := &RegisterHandler{
		CredentialsService: r.CredentialsService,
		SessionService:     r.SessionService,
		CookieSecure:       r.cookieSecure,
	}

	// Strict limits on both: login for brute force, register for signup
	// abuse.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login, httpx.RateLimitByIP(httpx.StrictLimit)),
	)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(register, httpx.RateLimitByIP(httpx.StrictLimit)),
	)
}

func (r *Router) registerSession() {
	session := &SessionHandler{CookieSecure: r.cookieSecure}
	password := &PasswordHandler{CredentialsService: r.CredentialsService}

	// Rate limiting runs before the session gate on every route, so
	// unauthenticated probing is throttled too.
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(session.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
			httpx.RequireSession(r.SessionService),
		),
	)

	// Logout never needs a valid token: clearing the cookie is safe no
	// matter what the client holds. A valid session still gets picked up
	// so the logout is attributable in the logs.
	r.Mux.Handle("DELETE /v1/session",
		httpx.Chain(http.HandlerFunc(session.HandleDelete),
			httpx.RateLimitByIP(httpx.LenientLimit),
			httpx.OptionalSession(r.SessionService),
		),
	)

	r.Mux.Handle("PUT /v1/session/password",
		httpx.Chain(password,
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.RequireSession(r.SessionService),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminAccountsHandler{AccountService: r.AccountService}

	r.Mux.Handle("GET /v1/admin/accounts/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.ModerateLimit),
			httpx.RequireSession(r.SessionService),
			httpx.RequireRole("admin"),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
