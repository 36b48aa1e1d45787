// Package app initializes and holds long-lived application services.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/webshepherd/webshepherd/internal/api"
	"github.com/webshepherd/webshepherd/internal/clock/system"
	"github.com/webshepherd/webshepherd/internal/config"
	"github.com/webshepherd/webshepherd/internal/engine"
	"github.com/webshepherd/webshepherd/internal/fetcher"
	"github.com/webshepherd/webshepherd/internal/id/uuid"
	"github.com/webshepherd/webshepherd/internal/logging"
	"github.com/webshepherd/webshepherd/internal/metrics"
	"github.com/webshepherd/webshepherd/internal/ratelimit"
	"github.com/webshepherd/webshepherd/internal/scan"
	"github.com/webshepherd/webshepherd/internal/storage/memory"
	"github.com/webshepherd/webshepherd/internal/storage/postgres"
	"github.com/webshepherd/webshepherd/internal/storage/sqlite"
)

// App wires the scan service together: store, fetcher, engine, limiter, and
// the HTTP server. It is built once at startup and torn down via Close.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     scan.Store
	engine    *engine.Engine
	server    *api.Server
	pruneStop chan struct{}
	pruneDone chan struct{}
}

// pruneInterval controls how often expired rate limiter entries are swept.
// Allow prunes its own key on every call; the sweep only matters for clients
// that stop submitting.
const pruneInterval = 5 * time.Minute

// New builds an App from configuration, failing fast if any service cannot be
// initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("scan store initialized", zap.String("provider", cfg.Database.Provider))

	clk := system.New()
	idGen := uuid.NewGenerator()

	fetchClient := fetcher.New(fetcher.Config{
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.MaxBodyBytes(),
		MaxRedirects: cfg.Fetch.MaxRedirects,
		UserAgent:    cfg.Fetch.UserAgent,
		AllowPrivate: cfg.Fetch.AllowPrivate,
	}, logging.Component(logger, "fetcher"))

	scanEngine := engine.New(store, fetchClient, idGen, clk, engine.Config{
		// Scans are bounded by the fetch timeout plus CPU-bound rule time;
		// double the fetch timeout leaves generous headroom.
		ExecTimeout: 2 * cfg.FetchTimeout(),
	}, logging.Component(logger, "engine"))

	limiter := ratelimit.New(ratelimit.Config{
		Window:   cfg.RateLimitWindow(),
		Capacity: cfg.RateLimit.Capacity,
	}, clk)

	server := api.NewServer(scanEngine, limiter, cfg, logging.Component(logger, "api"))

	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		engine:    scanEngine,
		server:    server,
		pruneStop: make(chan struct{}),
		pruneDone: make(chan struct{}),
	}
	go a.pruneLoop(limiter)

	return a, nil
}

func (a *App) pruneLoop(limiter *ratelimit.Limiter) {
	defer close(a.pruneDone)
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			limiter.Prune()
		case <-a.pruneStop:
			return
		}
	}
}

// Server returns the HTTP server component.
func (a *App) Server() *api.Server {
	return a.server
}

// Engine returns the scan engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Close drains in-flight scans and shuts down services.
func (a *App) Close() {
	close(a.pruneStop)
	<-a.pruneDone
	a.engine.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing scan store", zap.Error(err))
	}
	// Sync failures on stderr are expected on some platforms.
	_ = a.logger.Sync()
}

func newStore(ctx context.Context, cfg config.Config) (scan.Store, error) {
	switch cfg.Database.Provider {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		store, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{DSN: cfg.Database.DSN})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database provider: %s", cfg.Database.Provider)
	}
}
