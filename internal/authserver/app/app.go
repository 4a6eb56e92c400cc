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

	"github.com/intermine/authserver/internal/authserver/domain"
	httpapi "github.com/intermine/authserver/internal/authserver/http"
	"github.com/intermine/authserver/internal/authserver/service"
	"github.com/intermine/authserver/internal/authserver/store"
	"github.com/intermine/authserver/internal/authserver/store/drivers/sqlite"
	"github.com/intermine/authserver/pkg/cryptox"
	"github.com/intermine/authserver/pkg/idx"
	"github.com/intermine/authserver/pkg/jwtx"
	"github.com/intermine/authserver/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the client registry service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.Signer

	registryService *service.RegistryService
	tokenService    *service.TokenService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authserver",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for secret hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, err := jwtx.NewSigner()
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing key: %w", err)
	}
	app.signer = signer

	app.initServices()
	app.initHTTP()

	if err := app.seedBootstrapUser(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("authserver starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"client_id_domain", app.cfg.ClientIDDomain,
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authserver...")

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

	app.logger.Info("authserver stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		app.cfg.DatabaseFile,
	)
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

func (app *Application) initServices() {
	app.registryService = &service.RegistryService{
		Store:          app.db,
		ClientIDDomain: app.cfg.ClientIDDomain,
	}

	app.tokenService = &service.TokenService{
		Registry: app.registryService,
		Store:    app.db,
		Signer:   app.signer,
		Issuer:   app.cfg.Issuer,
	}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.signer,
		app.logger,
	)

	router.RegistryService = app.registryService
	router.TokenService = app.tokenService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// seedBootstrapUser creates the configured bootstrap account when the user
// table is empty, so a fresh deployment has an owner to register clients
// under before the external account system is wired up.
func (app *Application) seedBootstrapUser(ctx context.Context) error {
	if app.cfg.BootstrapUsername == "" || app.cfg.BootstrapPassword == "" {
		return nil
	}

	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashSecret(app.cfg.BootstrapPassword)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	now := time.Now().UTC()
	err = app.db.Users().CreateUser(ctx, domain.User{
		ID:           idx.New().String(),
		Username:     app.cfg.BootstrapUsername,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("failed to seed bootstrap user: %w", err)
	}

	app.logger.Info("bootstrap user seeded", "username", app.cfg.BootstrapUsername)
	return nil
}
