// tail connects to the dashboard push channel and prints live events to
// the console.
// Usage: go run ./cmd/tail --config configs/watcher.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/calebmoore/pulsewatch/internal/channel"
	"github.com/calebmoore/pulsewatch/internal/config"
	"github.com/calebmoore/pulsewatch/internal/event"
)

func main() {
	configPath := flag.String("config", "configs/watcher.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full envelope JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

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

	mgr.Subscribe(func(env channel.Envelope) {
		printEnvelope(env, *verbose)
	})

	mgr.Connect()
	logger.Info("tailing push channel - press Ctrl+C to stop", "addr", mgr.Addr())

	// Wait for shutdown
	<-ctx.Done()

	mgr.Shutdown()
	logger.Info("shutdown complete")
}

func printEnvelope(env channel.Envelope, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(json.RawMessage(env.Raw), "", "  ")
		fmt.Printf("[%s] %s\n", env.Type, data)
		return
	}

	payload, err := event.Decode(env.Type, env.Data)
	if err != nil {
		// Unknown or malformed payloads still get a line
		fmt.Printf("[%s] %s\n", env.Type, env.Data)
		return
	}

	switch p := payload.(type) {
	case event.NodeUpdate:
		fmt.Printf("[NODE] id=%d status=%s last_check=%s\n", p.NodeID, p.Status, p.LastCheck)
	case event.VMsUpdate:
		fmt.Printf("[VMS] node=%d count=%d\n", p.NodeID, p.VMCount)
	case event.ServiceUpdate:
		if p.ResponseTime != nil {
			fmt.Printf("[SERVICE] id=%d status=%s response=%.3fs\n", p.ServiceID, p.Status, *p.ResponseTime)
		} else {
			fmt.Printf("[SERVICE] id=%d status=%s\n", p.ServiceID, p.Status)
		}
	case event.Alert:
		fmt.Printf("[ALERT] id=%d type=%s severity=%s title=%q\n", p.ID, p.AlertType, p.Severity, p.Title)
	}
}
