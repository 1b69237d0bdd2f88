package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/taprootstats/tapscan/internal/models"
)

var csvHeader = []string{"height", "total_txs", "total_inputs", "mixed_tx_count", "schnorr_sigs", "non_schnorr_sigs"}

// CSVHandler writes the result set to a single CSV file, header first, one
// row per block, in the order the results arrive (the scanner sorts them).
type CSVHandler struct {
	path string
}

var _ Handler = (*CSVHandler)(nil)

func NewCSVHandler(path string) *CSVHandler {
	return &CSVHandler{path: path}
}

func (h *CSVHandler) WriteResults(ctx context.Context, results []models.BlockResult) error {
	slog.Info("Writing results to CSV file", "file", h.path)

	f, err := os.Create(h.path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		record := []string{
			strconv.FormatInt(r.Height, 10),
			strconv.FormatUint(r.TotalTxs, 10),
			strconv.FormatUint(r.TotalInputs, 10),
			strconv.FormatUint(r.MixedTxCount, 10),
			strconv.FormatUint(r.SchnorrSigs, 10),
			strconv.FormatUint(r.NonSchnorrSigs, 10),
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("failed to write CSV row for height %d: %w", r.Height, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close CSV file: %w", err)
	}
	return nil
}

func (h *CSVHandler) Close() error {
	return nil
}
