// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jvaisto/clerkbot/internal/archiver"
	"github.com/jvaisto/clerkbot/internal/clock/system"
	"github.com/jvaisto/clerkbot/internal/config"
	"github.com/jvaisto/clerkbot/internal/logging"
	"github.com/jvaisto/clerkbot/internal/mediawiki"
	"github.com/jvaisto/clerkbot/internal/store"
	"github.com/jvaisto/clerkbot/internal/store/postgres"
)

// App holds all the shared, long-lived services for the application. It
// is initialized once at startup and passed to the components that need
// it.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	runs   archiver.RunStore
	wiki   *mediawiki.Client
	clock  archiver.Clock
}

// NewApp creates and initializes an App from the loaded configuration.
// It fails fast if any critical service cannot be initialized.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	var runs archiver.RunStore
	if cfg.DB.DSN == "" {
		logger.Info("no database configured, run history disabled")
		runs = store.NoOpStore{}
	} else {
		runs, err = postgres.NewRunStore(ctx, postgres.RunStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize run store: %w", err)
		}
		logger.Info("connected to postgres", zap.String("table", cfg.DB.Table))
	}

	wiki, err := mediawiki.New(mediawiki.Config{
		APIURL:         cfg.Wiki.APIURL,
		UserAgent:      cfg.Wiki.UserAgent,
		Timeout:        time.Duration(cfg.Wiki.TimeoutSeconds) * time.Second,
		EditsPerMinute: cfg.Wiki.EditsPerMinute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize wiki client: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
		runs:   runs,
		wiki:   wiki,
		clock:  system.New(),
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Runs exposes the configured run history store.
func (a *App) Runs() archiver.RunStore {
	return a.runs
}

// Wiki exposes the MediaWiki API client.
func (a *App) Wiki() *mediawiki.Client {
	return a.wiki
}

// Clock returns the wall clock used to time runs.
func (a *App) Clock() archiver.Clock {
	return a.clock
}

// Close releases held resources.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.runs != nil {
		a.runs.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
