// Package bootstrap wires the correlation service together: logger,
// config, storage, enrichment clients, engine, and HTTP server.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"argus/api"
	"argus/config"
	"argus/correlate"
	"argus/narrative"
	"argus/notify"
	"argus/storage"
	"argus/threat"
)

// App holds every initialized component of the correlation service.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Store     *storage.MongoStore
	Engine    *correlate.Engine
	APIServer *api.API
}

// NewApp initializes all components. Optional enrichments (threat intel,
// narrative, notifications) wire in only when enabled.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{}

	logger, sugar, err := InitLogger(os.Getenv("ARGUS_LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("Argus correlation service starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	store, err := storage.NewMongoStore(ctx, cfg, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.Store = store

	if err := store.EnsureIndexes(ctx); err != nil {
		sugar.Warnw("Failed to ensure indexes, continuing", "error", err)
	}

	var intel threat.Lookuper
	if cfg.ThreatIntel.Enabled {
		intel = threat.NewClient(cfg, sugar)
		sugar.Info("Threat intel enrichment enabled")
	}

	var gen narrative.Generator
	if cfg.Narrative.Enabled {
		gen = narrative.NewClient(cfg, sugar)
		sugar.Info("Narrative generation enabled")
	}

	var sink notify.Sink
	if cfg.Notifications.Enabled {
		sink = notify.NewNotifier(cfg, store, sugar)
		sugar.Info("Incident notifications enabled")
	}

	app.Engine = correlate.NewEngine(store, intel, gen, sink, cfg, sugar)
	app.APIServer = api.NewAPI(app.Engine, cfg, sugar)

	return app, nil
}

// Start launches the HTTP server in the background.
func (a *App) Start() {
	go func() {
		a.Sugar.Infow("API server listening", "port", a.Config.API.Port, "tls", a.Config.API.TLS)
		if err := a.APIServer.Start(); err != nil && err != http.ErrServerClosed {
			a.Sugar.Fatalw("API server failed", "error", err)
		}
	}()
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully stops the server and closes storage.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if a.APIServer != nil {
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Warnw("API shutdown error", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			a.Sugar.Warnw("Storage close error", "error", err)
		}
	}

	_ = a.Logger.Sync()
	a.Sugar.Info("Shutdown complete")
}
