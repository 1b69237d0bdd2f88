package output

import (
	"context"

	"github.com/taprootstats/tapscan/internal/models"
)

// Handler receives the finished, height-ordered scan results.
type Handler interface {
	// WriteResults persists the full result set in one shot.
	WriteResults(ctx context.Context, results []models.BlockResult) error

	// Close releases any resources held by the handler.
	Close() error
}
