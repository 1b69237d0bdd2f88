package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/taprootstats/tapscan/internal/config"
	"github.com/taprootstats/tapscan/internal/kernel"
	"github.com/taprootstats/tapscan/internal/metrics"
	"github.com/taprootstats/tapscan/internal/models"
)

// progressLogInterval is how many completed heights pass between coarse
// progress log lines.
const progressLogInterval = 10000

// Scan processes every height in [cfg.Start, cfg.End] in parallel and
// returns the per-block results sorted ascending by height. An inverted
// range yields an empty result set.
//
// Per-height failure policy: a height whose block index cannot be found is
// logged and skipped; a height whose undo data cannot be read is logged and
// reported with zero counts. Neither aborts the scan.
func Scan(ctx context.Context, client kernel.Client, cfg config.ScanConfig) ([]models.BlockResult, error) {
	if cfg.Start > cfg.End {
		slog.Warn("Empty height range, nothing to scan", "start", cfg.Start, "end", cfg.End)
		return []models.BlockResult{}, nil
	}

	total := cfg.End - cfg.Start + 1
	slog.Info("Scanning blocks", "range", fmt.Sprintf("[%d, %d]", cfg.Start, cfg.End), "workers", cfg.MaxConcurrency)

	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("Scanning blocks..."),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	if err := bar.RenderBlank(); err != nil {
		return nil, fmt.Errorf("failed to render progress bar: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, cfg.MaxConcurrency)

	// Workers hand finished rows to a single collector goroutine instead of
	// sharing a locked slice; the collector owns the result set until the
	// join below.
	resCh := make(chan models.BlockResult, cfg.MaxConcurrency)
	results := make([]models.BlockResult, 0, total)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for r := range resCh {
			results = append(results, r)
		}
	}()

	var processed atomic.Int64
	for height := cfg.Start; height <= cfg.End; height++ {
		if ctx.Err() != nil {
			slog.Info("Scan cancelled by user")
			break
		}

		blockHeight := height
		sem <- struct{}{}

		eg.Go(func() error {
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				return err
			}

			if result, ok := processHeight(client, blockHeight); ok {
				resCh <- result
			}

			metrics.BlocksProcessed.Inc()
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
			if done := processed.Add(1); done%progressLogInterval == 0 || done == total {
				slog.Info("Scan progress", "processed", done, "total", total)
			}
			return nil
		})
	}

	waitErr := eg.Wait()
	close(resCh)
	<-collectorDone

	if waitErr == nil {
		waitErr = ctx.Err()
	}
	if waitErr != nil {
		return nil, fmt.Errorf("scan aborted: %w", waitErr)
	}
	if err := bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}

	// Completion order is whatever the workers made of it; the output
	// contract is ascending by height.
	sort.Slice(results, func(i, j int) bool { return results[i].Height < results[j].Height })

	slog.Info("Scan complete", "blocks", len(results))
	return results, nil
}

// processHeight classifies every spent prevout of one block. The returned
// bool is false when the height has no block index and must be skipped.
func processHeight(client kernel.Client, height int64) (models.BlockResult, bool) {
	bi, err := client.BlockIndexByHeight(height)
	if err != nil {
		slog.Warn("Failed to get block index", "height", height, "error", err)
		metrics.HeightsSkipped.Inc()
		return models.BlockResult{}, false
	}

	result := models.BlockResult{Height: height}

	undo, err := client.BlockUndo(bi)
	if err != nil {
		slog.Warn("Failed to read undo data", "height", height, "error", err)
		metrics.UndoReadFailures.Inc()
		return result, true
	}

	for _, tx := range undo.Txs {
		result.TotalTxs++

		var hasTaproot, hasOther bool
		for _, prevout := range tx.Prevouts {
			result.TotalInputs++
			if IsP2TR(prevout.ScriptPubKey) {
				hasTaproot = true
				result.SchnorrSigs++
			} else {
				hasOther = true
				result.NonSchnorrSigs++
			}
		}
		if hasTaproot && hasOther {
			result.MixedTxCount++
		}
	}

	metrics.TaprootInputs.Add(float64(result.SchnorrSigs))
	metrics.NonTaprootInputs.Add(float64(result.NonSchnorrSigs))
	metrics.MixedTransactions.Add(float64(result.MixedTxCount))
	return result, true
}
