// Package bootstrap wires MoltNet's adapters, services, and controllers
// into a running process. Engine mirrors the corpus's builder-style
// entrypoint: construct with New(), then call Run() or RunMigrations().
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/moltnet/moltnet/internal/infra/config"
	"github.com/moltnet/moltnet/internal/infra/logging"
	"github.com/moltnet/moltnet/internal/migrations"
)

// Engine is the main entry point for the MoltNet API process.
type Engine struct {
	configFilePath string
	config         *config.Config
}

// New creates a new Engine with default configuration discovery.
func New() *Engine {
	return &Engine{}
}

// NewWithConfig creates a new Engine that loads config from the given file path.
func NewWithConfig(configPath string) *Engine {
	return &Engine{configFilePath: configPath}
}

// Run starts the engine: loads config, runs preflight checks, initializes
// all components, and starts the HTTP server. Blocks until shutdown signal
// (SIGINT/SIGTERM).
func (e *Engine) Run() error {
	ctx := context.Background()

	handler := logging.NewContextHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}),
	)
	slog.SetDefault(slog.New(handler))

	slog.InfoContext(ctx, "starting moltnet")

	if err := e.loadConfig(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := e.preflightChecks(ctx); err != nil {
		return err
	}

	app, err := e.initialize(ctx)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	return e.runWithSignals(ctx, app)
}

// RunMigrations loads config and applies all pending database migrations.
func (e *Engine) RunMigrations() error {
	if err := e.loadConfig(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return migrations.Run(&e.config.Database)
}

// loadConfig loads configuration from file or the standard discovery paths.
func (e *Engine) loadConfig() error {
	if e.config != nil {
		return nil
	}

	if e.configFilePath != "" {
		cfg, err := config.LoadFromFile(e.configFilePath)
		if err != nil {
			return err
		}
		e.config = cfg
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	e.config = cfg
	return nil
}

// preflightChecks validates that the configuration carries what the
// process needs before any adapter is constructed, so a misconfiguration
// fails fast with a clear message instead of surfacing as a confusing
// connection error deep in initialize.
func (e *Engine) preflightChecks(_ context.Context) error {
	cfg := e.config

	if cfg.Database.DSN() == "" {
		return fmt.Errorf("preflight: database connection is not configured")
	}
	if cfg.Auth.JWKSURL == "" && cfg.Auth.IntrospectionURL == "" {
		return fmt.Errorf("preflight: neither auth.jwks_url nor auth.introspection_url is configured")
	}
	if cfg.Policy.ReadURL == "" || cfg.Policy.WriteURL == "" {
		return fmt.Errorf("preflight: policy.read_url and policy.write_url are required")
	}
	if cfg.Recovery.ChallengeSecret == "" {
		return fmt.Errorf("preflight: recovery.challenge_secret is required")
	}

	return nil
}

// runWithSignals starts the app and waits for shutdown signal.
func (e *Engine) runWithSignals(ctx context.Context, app *appComponents) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.scheduler.Start(ctx)
	if err := app.riverClient.Start(ctx); err != nil {
		return fmt.Errorf("starting workflow runtime: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := app.httpServer.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	port := e.config.Server.Port
	fmt.Println()
	fmt.Println("  moltnet is running")
	fmt.Println()
	fmt.Printf("  API:    http://localhost:%s\n", port)
	fmt.Printf("  Health: http://localhost:%s/health\n", port)
	fmt.Println()

	select {
	case sig := <-sigChan:
		slog.InfoContext(ctx, "received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		slog.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
		return err
	}

	app.cleanup()
	slog.InfoContext(ctx, "moltnet stopped")
	return nil
}
