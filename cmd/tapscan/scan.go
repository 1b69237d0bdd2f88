package tapscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taprootstats/tapscan/internal/config"
	"github.com/taprootstats/tapscan/internal/kernel"
	"github.com/taprootstats/tapscan/internal/metrics"
	"github.com/taprootstats/tapscan/internal/output"
	"github.com/taprootstats/tapscan/internal/scanner"
)

// runScan wires kernel, scanner and output handlers together for one run.
func runScan(ctx context.Context, cfg config.ScanConfig) error {
	slog.Info("Starting analysis", "network", cfg.Network, "datadir", cfg.DataDir)

	setupStart := time.Now()
	client, err := kernel.Open(cfg.Network, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open chain database: %w", err)
	}
	defer client.Close()

	slog.Info("Importing blocks")
	if err := client.ImportBlocks(ctx); err != nil {
		return fmt.Errorf("failed to import blocks: %w", err)
	}
	slog.Info("Setup completed", "elapsed", time.Since(setupStart).Round(time.Millisecond))

	if cfg.MetricsAddr != "" {
		go func() {
			slog.Info("Serving metrics", "addr", cfg.MetricsAddr)
			if err := metrics.ListenAndServe(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	results, err := scanner.Scan(ctx, client, cfg)
	if err != nil {
		return err
	}

	handlers := []output.Handler{output.NewCSVHandler(cfg.Output)}
	if cfg.PostgresConn != "" {
		ph, err := output.NewPostgresHandler(ctx, cfg.PostgresConn)
		if err != nil {
			return fmt.Errorf("failed to set up postgres output: %w", err)
		}
		handlers = append(handlers, ph)
	}

	for _, h := range handlers {
		if err := h.WriteResults(ctx, results); err != nil {
			return err
		}
	}
	for _, h := range handlers {
		if err := h.Close(); err != nil {
			slog.Warn("Failed to close output handler", "error", err)
		}
	}

	slog.Info("Analysis complete", "output", cfg.Output)
	return nil
}
