package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/applyhub/identity/internal/identity/http"
	"github.com/applyhub/identity/internal/identity/provider"
	"github.com/applyhub/identity/internal/identity/provider/google"
	"github.com/applyhub/identity/internal/identity/service"
	"github.com/applyhub/identity/internal/identity/store"
	"github.com/applyhub/identity/internal/identity/store/drivers/sqlite"
	"github.com/applyhub/identity/pkg/jwtx"
	"github.com/applyhub/identity/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	reconcileService   *service.ReconcileService
	sessionService     *service.SessionService
	credentialsService *service.CredentialsService
	accountService     *service.AccountService
	providers          *provider.Registry

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		return nil, err
	}
	if err := app.initProviders(); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	app.db = db
	return nil
}

func (app *Application) initServices() error {
	secret := []byte(app.cfg.SessionSecret)
	if len(secret) == 0 {
		// Config validation already rejected this for prod.
		ephemeral := make([]byte, jwtx.MinSecretLength)
		if _, err := rand.Read(ephemeral); err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		secret = ephemeral
		app.logger.Warn("SESSION_SECRET not set, using an ephemeral secret; sessions will not survive restarts")
	}

	signer, err := jwtx.NewSignerHS256(secret)
	if err != nil {
		return fmt.Errorf("failed to initialize session signer: %w", err)
	}
	verifier, err := jwtx.NewVerifierHS256(secret)
	if err != nil {
		return fmt.Errorf("failed to initialize session verifier: %w", err)
	}

	app.sessionService = &service.SessionService{
		Signer:   signer,
		Verifier: verifier,
		Issuer:   app.cfg.Issuer,
		TTL:      app.cfg.SessionTTL,
	}
	app.reconcileService = &service.ReconcileService{Store: app.db}
	app.credentialsService = &service.CredentialsService{Store: app.db}
	app.accountService = &service.AccountService{Store: app.db}
	return nil
}

func (app *Application) initProviders() error {
	var providers []provider.Provider

	if app.cfg.GoogleClientID != "" {
		g, err := google.New(
			context.Background(),
			app.cfg.GoogleClientID,
			app.cfg.GoogleClientSecret,
			app.cfg.GoogleRedirectURL,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize google provider: %w", err)
		}
		providers = append(providers, g)
	} else {
		app.logger.Warn("google oauth not configured, provider login disabled")
	}

	app.providers = provider.NewRegistry(providers...)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.cfg.CookieSecure, app.db, app.logger)
	router.Providers = app.providers
	router.ReconcileService = app.reconcileService
	router.SessionService = app.sessionService
	router.CredentialsService = app.credentialsService
	router.AccountService = app.accountService
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}
