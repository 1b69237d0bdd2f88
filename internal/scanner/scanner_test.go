package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taprootstats/tapscan/internal/config"
	"github.com/taprootstats/tapscan/internal/kernel"
	"github.com/taprootstats/tapscan/internal/models"
)

// stubClient is an in-memory kernel double. Heights present in undos have a
// block index and undo data; heights in failUndo have an index but the undo
// read fails; everything else is not found.
type stubClient struct {
	undos    map[int64]*models.BlockUndo
	failUndo map[int64]bool
}

func (s *stubClient) ImportBlocks(ctx context.Context) error { return nil }

func (s *stubClient) BlockIndexByHeight(height int64) (*kernel.BlockIndex, error) {
	if s.failUndo[height] {
		return &kernel.BlockIndex{Height: height}, nil
	}
	if _, ok := s.undos[height]; !ok {
		return nil, kernel.ErrNotFound
	}
	return &kernel.BlockIndex{Height: height}, nil
}

func (s *stubClient) BlockUndo(bi *kernel.BlockIndex) (*models.BlockUndo, error) {
	if s.failUndo[bi.Height] {
		return nil, errors.New("undo data missing")
	}
	return s.undos[bi.Height], nil
}

func (s *stubClient) Close() error { return nil }

func otherScript() []byte {
	return append(append([]byte{0x76, 0xa9, 0x14}, make([]byte, 20)...), 0x88, 0xac)
}

func scanCfg(start, end int64) config.ScanConfig {
	return config.ScanConfig{Start: start, End: end, MaxConcurrency: 4}
}

func TestScanMixedTransactionScenario(t *testing.T) {
	client := &stubClient{
		undos: map[int64]*models.BlockUndo{
			100: {
				Height: 100,
				Txs: []models.TxUndo{
					{Prevouts: []models.Prevout{
						{ScriptPubKey: p2trScript(0x01)},
						{ScriptPubKey: otherScript()},
					}},
					{Prevouts: []models.Prevout{
						{ScriptPubKey: otherScript()},
						{ScriptPubKey: otherScript()},
					}},
				},
			},
		},
	}

	results, err := Scan(context.Background(), client, scanCfg(100, 100))
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, models.BlockResult{
		Height:         100,
		TotalTxs:       2,
		TotalInputs:    4,
		MixedTxCount:   1,
		SchnorrSigs:    1,
		NonSchnorrSigs: 3,
	}, results[0])
}

func TestScanSkipsMissingHeight(t *testing.T) {
	undos := make(map[int64]*models.BlockUndo)
	for h := int64(100); h <= 110; h++ {
		if h == 105 {
			continue
		}
		undos[h] = &models.BlockUndo{
			Height: h,
			Txs: []models.TxUndo{
				{Prevouts: []models.Prevout{{ScriptPubKey: p2trScript(byte(h))}}},
			},
		}
	}

	results, err := Scan(context.Background(), &stubClient{undos: undos}, scanCfg(100, 110))
	require.NoError(t, err)
	require.Len(t, results, 10)

	heights := make([]int64, 0, len(results))
	for _, r := range results {
		heights = append(heights, r.Height)
	}
	assert.Equal(t, []int64{100, 101, 102, 103, 104, 106, 107, 108, 109, 110}, heights)
}

func TestScanZeroFillsUndoReadFailure(t *testing.T) {
	client := &stubClient{
		undos: map[int64]*models.BlockUndo{
			200: {
				Height: 200,
				Txs: []models.TxUndo{
					{Prevouts: []models.Prevout{{ScriptPubKey: otherScript()}}},
				},
			},
		},
		failUndo: map[int64]bool{201: true},
	}

	results, err := Scan(context.Background(), client, scanCfg(200, 201))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, models.BlockResult{Height: 201}, results[1])
	assert.EqualValues(t, 1, results[0].TotalTxs)
}

func TestScanEmptyRange(t *testing.T) {
	results, err := Scan(context.Background(), &stubClient{}, scanCfg(10, 5))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScanOrderingAndInvariants(t *testing.T) {
	undos := make(map[int64]*models.BlockUndo)
	for h := int64(0); h < 500; h++ {
		var txs []models.TxUndo
		for i := int64(0); i <= h%4; i++ {
			prevouts := []models.Prevout{{ScriptPubKey: otherScript()}}
			if (h+i)%3 == 0 {
				prevouts = append(prevouts, models.Prevout{ScriptPubKey: p2trScript(byte(i))})
			}
			txs = append(txs, models.TxUndo{Prevouts: prevouts})
		}
		undos[h] = &models.BlockUndo{Height: h, Txs: txs}
	}
	client := &stubClient{undos: undos}

	results, err := Scan(context.Background(), client, scanCfg(0, 499))
	require.NoError(t, err)
	require.Len(t, results, 500)

	for i, r := range results {
		assert.EqualValues(t, i, r.Height)
		assert.Equal(t, r.TotalInputs, r.SchnorrSigs+r.NonSchnorrSigs, "height %d", r.Height)
		assert.LessOrEqual(t, r.MixedTxCount, r.TotalTxs, "height %d", r.Height)
	}

	// Same chain, same range, same results.
	again, err := Scan(context.Background(), client, scanCfg(0, 499))
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestScanCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, &stubClient{}, scanCfg(0, 1000))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
