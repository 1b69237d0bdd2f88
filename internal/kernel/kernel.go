package kernel

import (
	"context"
	"errors"

	"github.com/taprootstats/tapscan/internal/models"
)

// ErrNotFound is returned by BlockIndexByHeight when the requested height is
// not part of the active chain.
var ErrNotFound = errors.New("block index not found")

// Client is the narrow boundary to the chain database. ImportBlocks must
// complete before any lookup; after it returns, BlockIndexByHeight and
// BlockUndo must be safe for concurrent use from multiple goroutines.
type Client interface {
	// ImportBlocks loads the block index and resolves the active chain.
	ImportBlocks(ctx context.Context) error

	// BlockIndexByHeight returns the active-chain block index entry at the
	// given height, or ErrNotFound.
	BlockIndexByHeight(height int64) (*BlockIndex, error)

	// BlockUndo reads the spend (undo) data recorded for the given block.
	BlockUndo(idx *BlockIndex) (*models.BlockUndo, error)

	// Close releases the underlying database.
	Close() error
}
