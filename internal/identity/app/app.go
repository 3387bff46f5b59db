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

	httpapi "github.com/cobaltleaf/doorman/internal/identity/http"
	"github.com/cobaltleaf/doorman/internal/identity/notify"
	"github.com/cobaltleaf/doorman/internal/identity/service"
	"github.com/cobaltleaf/doorman/internal/identity/store"
	"github.com/cobaltleaf/doorman/internal/identity/store/drivers/sqlite"
	"github.com/cobaltleaf/doorman/pkg/cryptox"
	"github.com/cobaltleaf/doorman/pkg/jwtx"
	"github.com/cobaltleaf/doorman/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the identity service together: store, signer, services,
// notifier, and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.Signer

	challengeService    *service.ChallengeService
	tokenService        *service.TokenService
	authzService        *service.AuthzService
	accountService      *service.AccountService
	auditService        *service.AuditService
	rolesService        *service.RolesService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "doorman",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

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

// Shutdown gracefully stops the server, background workers, and the store.
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

	app.housekeepingService.Stop()

	// Drain buffered audit events before the store goes away.
	app.auditService.Close()
	if dropped := app.auditService.Dropped(); dropped > 0 {
		app.logger.Warn("audit events dropped during runtime", "count", dropped)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initSigner loads the Ed25519 signing key from disk, or generates an
// ephemeral one when no key file is configured. Ephemeral keys invalidate
// every outstanding access token on restart.
func (app *Application) initSigner() error {
	if app.cfg.SigningKeyFile == "" {
		signer, err := jwtx.NewEphemeralSigner("primary")
		if err != nil {
			return fmt.Errorf("failed to generate signing key: %w", err)
		}
		app.signer = signer
		app.logger.Warn("using ephemeral signing key; access tokens will not survive restarts")
		return nil
	}

	pemKey, err := os.ReadFile(app.cfg.SigningKeyFile)
	if err != nil {
		return fmt.Errorf("failed to read signing key file: %w", err)
	}
	signer, err := jwtx.NewSignerFromPEM("primary", pemKey)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}
	app.signer = signer
	app.logger.Info("signing key loaded", "file", app.cfg.SigningKeyFile)
	return nil
}

func (app *Application) initServices() {
	notifier := app.buildNotifier()

	app.challengeService = &service.ChallengeService{
		Store:       app.db,
		Notifier:    notifier,
		TTL:         app.cfg.ChallengeTTL,
		MaxAttempts: app.cfg.ChallengeMaxAttempts,
	}

	app.tokenService = &service.TokenService{
		Signer:     app.signer,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.authzService = &service.AuthzService{
		Verifier: jwtx.NewVerifier(app.signer.PublicKey(), app.cfg.Issuer, 0),
		Store:    app.db,
	}

	app.auditService = service.NewAuditService(app.db, app.logger, app.cfg.AuditBufferSize)

	app.accountService = &service.AccountService{
		Store:      app.db,
		Challenges: app.challengeService,
		Tokens:     app.tokenService,
		Audit:      app.auditService,
		Notifier:   notifier,
	}

	app.rolesService = &service.RolesService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.AuditRetention,
	)
}

func (app *Application) buildNotifier() notify.Notifier {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("no SMTP host configured; verification codes will be logged")
		return notify.NewLogNotifier(app.logger)
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
	})
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.AccountService = app.accountService
	router.TokenService = app.tokenService
	router.AuthzService = app.authzService
	router.AuditService = app.auditService
	router.RolesService = app.rolesService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
