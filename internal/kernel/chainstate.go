package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// blockIndexKeyPrefix tags block-index records in the LevelDB database.
const blockIndexKeyPrefix = 'b'

// ChainstateClient reads an existing Bitcoin Core datadir: the block index
// LevelDB under <datadir>/blocks/index and the undo files under
// <datadir>/blocks. It never writes. The height map built by ImportBlocks is
// immutable afterwards, so lookups and undo reads are safe concurrently.
type ChainstateClient struct {
	params    Params
	blocksDir string
	db        *leveldb.DB
	byHeight  map[int64]*BlockIndex
}

var _ Client = (*ChainstateClient)(nil)

// Open opens the block index database of the given datadir read-only.
func Open(network, dataDir string) (*ChainstateClient, error) {
	params, err := ParamsForNetwork(network)
	if err != nil {
		return nil, err
	}

	blocksDir := filepath.Join(dataDir, "blocks")
	db, err := leveldb.OpenFile(filepath.Join(blocksDir, "index"), &opt.Options{
		ReadOnly:       true,
		ErrorIfMissing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open block index: %w", err)
	}

	return &ChainstateClient{
		params:    params,
		blocksDir: blocksDir,
		db:        db,
	}, nil
}

// ImportBlocks loads every block-index record, picks the best chain-valid
// tip, and walks the prev-hash links back to genesis to resolve the active
// chain. Stale forks are left out of the height map.
func (c *ChainstateClient) ImportBlocks(ctx context.Context) error {
	iter := c.db.NewIterator(util.BytesPrefix([]byte{blockIndexKeyPrefix}), nil)
	defer iter.Release()

	byHash := make(map[chainhash.Hash]*BlockIndex)
	var tip *BlockIndex
	var scanned int
	for iter.Next() {
		scanned++
		if scanned%50000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		key := iter.Key()
		if len(key) != 1+chainhash.HashSize {
			continue
		}
		var hash chainhash.Hash
		copy(hash[:], key[1:])

		bi, err := decodeBlockIndex(hash, iter.Value())
		if err != nil {
			return errors.WithMessagef(err, "failed to decode block index record %s", hash)
		}
		byHash[hash] = bi

		if bi.chainValid() && (tip == nil || bi.Height > tip.Height) {
			tip = bi
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to iterate block index: %w", err)
	}
	if tip == nil {
		return errors.New("block index contains no chain-valid blocks")
	}

	byHeight := make(map[int64]*BlockIndex, tip.Height+1)
	for bi := tip; ; {
		byHeight[bi.Height] = bi
		if bi.Height == 0 {
			break
		}
		prev, ok := byHash[bi.Header.PrevBlock]
		if !ok {
			return fmt.Errorf("block index is missing the parent of height %d (%s)", bi.Height, bi.Hash)
		}
		bi = prev
	}
	c.byHeight = byHeight

	slog.Info("Block index loaded", "network", c.params.Name, "blocks", len(byHeight), "tip", tip.Height)
	return nil
}

// BlockIndexByHeight returns the active-chain entry at height, or
// ErrNotFound when the height is above the tip or ImportBlocks left it out.
func (c *ChainstateClient) BlockIndexByHeight(height int64) (*BlockIndex, error) {
	bi, ok := c.byHeight[height]
	if !ok {
		return nil, ErrNotFound
	}
	return bi, nil
}

// Close releases the block index database.
func (c *ChainstateClient) Close() error {
	return c.db.Close()
}
