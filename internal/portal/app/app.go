// Package app assembles the sponsor-portal auth service: configuration,
// storage, signing keys, services, and the HTTP server lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/trialdiary/sponsorportal/internal/portal/http"
	"github.com/trialdiary/sponsorportal/internal/portal/service"
	"github.com/trialdiary/sponsorportal/internal/portal/store"
	"github.com/trialdiary/sponsorportal/internal/portal/store/drivers/memory"
	"github.com/trialdiary/sponsorportal/internal/portal/store/drivers/sqlite"
	"github.com/trialdiary/sponsorportal/pkg/cryptox"
	"github.com/trialdiary/sponsorportal/pkg/jwtx"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the portal service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer jwtx.Signer
	keys   *jwtx.KeySet

	tokenService      *service.TokenService
	authService       *service.AuthService
	activationService *service.ActivationService
	userService       *service.UserService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sponsor-portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initStore(); err != nil {
		return nil, err
	}

	signer, keys, verifier, err := initSigningKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.signer = signer
	app.keys = keys

	app.initServices()
	app.initHTTP(verifier)

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("sponsor portal starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"storage_driver", app.cfg.StorageDriver,
	)

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

// Shutdown gracefully stops the HTTP server, then closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down sponsor portal...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("sponsor portal stopped")
	return nil
}

func (app *Application) initStore() error {
	switch app.cfg.StorageDriver {
	case "memory":
		app.db = memory.NewStore()
		app.logger.Warn("using in-memory store; all accounts are lost on restart")
		return nil

	default:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db

		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}

		app.logger.Info("database migrations applied successfully")
		return nil
	}
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Signer:     app.signer,
		Issuer:     app.cfg.Issuer,
		SessionTTL: app.cfg.SessionTTL,
	}
	app.authService = &service.AuthService{
		Store:  app.db,
		Tokens: app.tokenService,
	}
	app.activationService = &service.ActivationService{Store: app.db}
	app.userService = &service.UserService{Store: app.db}
}

func (app *Application) initHTTP(verifier jwtx.Verifier) {
	router := httpapi.NewRouter(
		app.keys,
		verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.ActivationService = app.activationService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
