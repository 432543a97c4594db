// pulsewatch follows a dashboard's live push channel and keeps it alive
// across server restarts. With archiving enabled it also records every
// received event to Postgres.
// Usage: go run ./cmd/pulsewatch --config configs/watcher.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/calebmoore/pulsewatch/internal/api"
	"github.com/calebmoore/pulsewatch/internal/archive"
	"github.com/calebmoore/pulsewatch/internal/channel"
	"github.com/calebmoore/pulsewatch/internal/config"
	"github.com/calebmoore/pulsewatch/internal/database"
	"github.com/calebmoore/pulsewatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/watcher.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting pulsewatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"origin", cfg.Server.Origin,
		"archive_enabled", cfg.Archive.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Probe the dashboard REST API. A failed probe is not fatal: the
	// channel manager retries the handshake on its own schedule.
	apiClient := api.NewClient(
		cfg.Server.Origin,
		cfg.Server.Token,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Server.Timeout),
		api.WithRetries(3, time.Second),
	)
	if err := apiClient.Healthy(ctx); err != nil {
		logger.Warn("dashboard health check failed", "error", err)
	} else {
		logger.Info("dashboard healthy")
	}

	// Optional database + event recorder
	var pool *pgxpool.Pool
	var recorder *archive.Recorder
	if cfg.Archive.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		logger.Info("database connected")

		recorder = archive.NewRecorder(archive.RecorderConfig{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
		}, pool, logger)

		if err := recorder.Start(ctx); err != nil {
			logger.Error("failed to start event recorder", "error", err)
			os.Exit(1)
		}
	}

	// Create the push-channel manager
	mgr, err := channel.New(channel.Options{
		URL:    cfg.Server.WSURL,
		Origin: cfg.Server.Origin,
		Token:  cfg.Server.Token,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create channel manager", "error", err)
		os.Exit(1)
	}

	if recorder != nil {
		mgr.Subscribe(recorder.Handle)
	}

	mgr.Connect()
	logger.Info("channel connecting", "addr", mgr.Addr())

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(mgr, pool, recorder),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		mgr.Shutdown()
		if recorder != nil {
			recorder.Stop(shutdownCtx)
		}
		healthServer.Shutdown(shutdownCtx)
		return nil
	})

	logger.Info("pulsewatch running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("runtime error", "error", err)
		os.Exit(1)
	}

	logger.Info("pulsewatch stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(mgr *channel.Manager, pool *pgxpool.Pool, recorder *archive.Recorder) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Push channel state
		st := mgr.Status()
		health.Components["channel"] = map[string]any{
			"state":   st.State.String(),
			"attempt": st.Attempt,
			"error":   st.Err,
		}
		switch {
		case st.Connected:
		case st.Reconnecting:
			health.Status = "degraded"
		default:
			health.Status = "unhealthy"
		}

		// Database, when archiving
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		if recorder != nil {
			stats := recorder.Stats()
			health.Components["archive"] = map[string]any{
				"inserts": stats.Inserts,
				"errors":  stats.Errors,
				"dropped": stats.Dropped,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
