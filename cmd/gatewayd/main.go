// Package main provides the CLI entry point for the gateway daemon: the
// HTTP server that binds sessions, pooled connections, collectors, and
// samplers into the /v1 REST surface. Pass -legacy-stdio to run
// the older NDJSON stdio worker instead, for local single-driver
// debugging without a session/pool.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	// Register database drivers into driver.DefaultRegistry.
	_ "github.com/mantis/gatewayd/internal/driver/duckdb"
	_ "github.com/mantis/gatewayd/internal/driver/mssql"
	_ "github.com/mantis/gatewayd/internal/driver/oracle"
	_ "github.com/mantis/gatewayd/internal/driver/postgres"

	"github.com/mantis/gatewayd/internal/ai"
	"github.com/mantis/gatewayd/internal/aicontext"
	"github.com/mantis/gatewayd/internal/collector"
	"github.com/mantis/gatewayd/internal/config"
	"github.com/mantis/gatewayd/internal/driver"
	"github.com/mantis/gatewayd/internal/handler"
	"github.com/mantis/gatewayd/internal/httpapi"
	"github.com/mantis/gatewayd/internal/logging"
	"github.com/mantis/gatewayd/internal/pool"
	"github.com/mantis/gatewayd/internal/sampler"
	"github.com/mantis/gatewayd/internal/session"
	"github.com/mantis/gatewayd/internal/transport"
)

// Version is set at build time.
var Version = "dev"

func main() {
	cfg := config.Load()

	log, err := logging.New(logging.Config{Development: cfg.Development})
	if err != nil {
		fmt.Fprintf(os.Stderr, "gatewayd: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.LegacyStdio {
		if err := runLegacyStdio(cfg.LegacyPool); err != nil && err != io.EOF {
			log.Error("legacy stdio worker exited with error", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Error("gatewayd exited with error", zap.Error(err))
		os.Exit(1)
	}
}

// run wires every collaborator together and serves the HTTP surface until
// a shutdown signal arrives.
func run(cfg config.Config, log *zap.Logger) error {
	log.Info("starting gatewayd", zap.String("version", Version), zap.String("listen", cfg.ListenAddr))

	sessions := session.NewManager()
	pools := pool.NewManager(pool.DefaultConfig())
	drivers := driver.DefaultRegistry

	collectors := collector.NewRegistry(cfg.DriversRoot, drivers, log)
	if loaded, err := collectors.Reload(); err != nil {
		log.Warn("collector registry: initial load failed, continuing with no packs", zap.Error(err))
	} else {
		log.Info("collector registry loaded", zap.Int("packs", loaded))
	}

	runner := collector.NewRunner(collectors, log)
	samplers := sampler.NewManager(runner, pools, sessions, log)
	if err := samplers.LoadDefaults(cfg.SamplersPath); err != nil {
		log.Warn("sampler manager: failed to load default definitions", zap.String("path", cfg.SamplersPath), zap.Error(err))
	}

	aiCtx := aicontext.New()

	var aiClient *ai.Client
	if cfg.AI.Enabled() {
		aiClient = ai.NewClient(cfg.AI)
		log.Info("AI gateway enabled", zap.String("model", cfg.AI.Model))
	} else {
		log.Info("AI gateway disabled: missing api_key, virtual_key, or model")
	}

	srv := httpapi.New(sessions, pools, drivers, collectors, runner, samplers, aiCtx, aiClient, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweepDone := runSweeper(ctx, sessions, log)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			cancel()
			<-sweepDone
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown did not complete cleanly", zap.Error(err))
	}

	samplers.Shutdown()
	if err := pools.Close(); err != nil {
		log.Warn("pool manager close reported errors", zap.Error(err))
	}

	cancel()
	<-sweepDone
	log.Info("gatewayd stopped")
	return nil
}

// runSweeper starts the session-expiry sweep (every 5 minutes, removing
// sessions whose idle or lifetime boundary has passed) and returns a
// channel closed once the sweeper goroutine has exited.
func runSweeper(ctx context.Context, sessions *session.Manager, log *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(session.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expired := sessions.Sweep()
				if len(expired) > 0 {
					log.Info("session sweep removed expired sessions", zap.Int("count", len(expired)))
				}
			}
		}
	}()
	return done
}

// runLegacyStdio runs the NDJSON-over-stdio worker mode for local
// single-driver debugging without a running HTTP session/pool. Reads
// requests from stdin, writes responses to stdout, one JSON object per
// line; the -pool-* flags bound its shared per-target pools.
func runLegacyStdio(poolCfg config.LegacyPoolConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	trans := transport.NewStdioTransport(os.Stdin, os.Stdout)

	var h *handler.Handler
	if poolCfg.Enabled {
		poolMgr := pool.NewManager(pool.Config{
			MaxIdleConns:    poolCfg.MaxIdleConns,
			MaxOpenConns:    poolCfg.MaxOpenConns,
			ConnMaxLifetime: poolCfg.ConnMaxLifetime,
			ConnMaxIdleTime: poolCfg.ConnMaxIdleTime,
		})
		defer poolMgr.Close()
		h = handler.NewWithDefaultRegistryAndPool(poolMgr)
	} else {
		h = handler.NewWithDefaultRegistry()
	}
	return transport.Serve(ctx, trans, h)
}
