// Package main wires the observer pipeline platform's dependencies
// together: config, shared database pool, worker pool, durable queue,
// and the pipeline engine. The platform is a library; this is a thin
// demonstration entrypoint, not an HTTP server (spec §1: HTTP surface
// stays external).
//
// Import Path: ringstore.io/platform/cmd/server
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"ringstore.io/platform/internal/async"
	"ringstore.io/platform/internal/clock"
	"ringstore.io/platform/internal/config"
	"ringstore.io/platform/internal/identity"
	"ringstore.io/platform/internal/infrastructure"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/observers"
	"ringstore.io/platform/internal/pipeline"
	"ringstore.io/platform/internal/pkg/logger"
	"ringstore.io/platform/internal/pkg/worker"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/schema"
	"ringstore.io/platform/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting ringstore platform", zap.String("log_level", cfg.Log.Level))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database clients: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("run river migration: %w", err)
	}

	tenantStore := store.NewPgTenantStore(db.Pool)
	schemaProvider := schema.NewPgProvider(db.Pool)

	identityProvider := identity.Provider(identity.NewStatic(nil))
	if len(cfg.Security.JWTVerificationKeys) > 0 {
		keys := make([][]byte, len(cfg.Security.JWTVerificationKeys))
		for i, k := range cfg.Security.JWTVerificationKeys {
			keys[i] = []byte(k)
		}
		identityProvider = identity.NewJWTProvider(identity.JWTConfig{
			VerificationKeys: keys,
			Issuer:           cfg.Security.JWTIssuer,
			Leeway:           cfg.Security.JWTLeeway,
		})
	}

	workerPool, err := worker.NewPool(ctx, worker.PoolConfig{
		Size:           cfg.Worker.AsyncPoolSize,
		ExpiryDuration: cfg.Worker.ExpiryDuration,
	})
	if err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	defer workerPool.Shutdown()

	reg := observer.NewRegistry()
	if err := observers.RegisterBuiltins(reg, cfg.Pipeline); err != nil {
		return fmt.Errorf("register built-in observers: %w", err)
	}
	if err := observers.RegisterBuiltinAsyncObservers(reg, tenantStore, clock.NewReal()); err != nil {
		return fmt.Errorf("register built-in async observers: %w", err)
	}
	reg.Freeze()

	riverWorkers := river.NewWorkers()
	for _, r := range []ring.Ring{ring.Audit, ring.Integration, ring.Notification} {
		river.AddWorker(riverWorkers, async.NewRingWorker(r, reg.AsyncObservers(r), schemaProvider))
	}
	if err := db.InitRiverClient(riverWorkers, cfg.River); err != nil {
		return fmt.Errorf("init river client: %w", err)
	}
	if err := db.RiverClient.Start(ctx); err != nil {
		return fmt.Errorf("start river client: %w", err)
	}
	defer db.RiverClient.Stop(context.Background())

	asyncExec := async.NewAntsExecutor(workerPool)

	var engineOpts []pipeline.Option
	if cfg.Pipeline.EnforceGlobalDeadline {
		engineOpts = append(engineOpts, pipeline.WithGlobalDeadline(cfg.Pipeline.GlobalDeadline))
	}
	engine := pipeline.New(reg, tenantStore, identityProvider, clock.NewReal(), asyncExec, engineOpts...)
	_ = engine // the engine is the library's public surface; wiring it
	// into a transport is the embedding application's job, not this
	// platform's (spec §1).

	logger.Info("platform ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")
	return nil
}
