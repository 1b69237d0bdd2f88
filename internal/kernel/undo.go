package kernel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"

	"github.com/taprootstats/tapscan/internal/models"
)

// Undo records are laid out as [magic 4][size 4][payload][checksum 32], with
// the index entry's undo position pointing at the payload.
const undoRecordHeaderSize = 8

// maxUndoRecordSize caps the payload size accepted from a record header,
// matching the network's maximum serialized message size.
const maxUndoRecordSize = 0x02000000

// BlockUndo reads and decodes the undo record for the given block. The
// record checksum (double-SHA256 of the previous block hash and the payload)
// is verified before decoding.
func (c *ChainstateClient) BlockUndo(bi *BlockIndex) (*models.BlockUndo, error) {
	if !bi.HasUndo() {
		return nil, fmt.Errorf("no undo data recorded for block %s at height %d", bi.Hash, bi.Height)
	}
	if bi.UndoPos < undoRecordHeaderSize {
		return nil, fmt.Errorf("undo position %d of height %d is inside the record header", bi.UndoPos, bi.Height)
	}

	f, err := os.Open(filepath.Join(c.blocksDir, fmt.Sprintf("rev%05d.dat", bi.File)))
	if err != nil {
		return nil, fmt.Errorf("failed to open undo file: %w", err)
	}
	defer f.Close()

	header := make([]byte, undoRecordHeaderSize)
	if _, err := f.ReadAt(header, int64(bi.UndoPos)-undoRecordHeaderSize); err != nil {
		return nil, fmt.Errorf("failed to read undo record header: %w", err)
	}
	if !bytes.Equal(header[:4], c.params.Magic[:]) {
		return nil, fmt.Errorf("undo record magic %x does not match %s", header[:4], c.params.Name)
	}
	size := binary.LittleEndian.Uint32(header[4:])
	if size > maxUndoRecordSize {
		return nil, fmt.Errorf("undo record size %d at height %d exceeds limit", size, bi.Height)
	}

	record := make([]byte, int(size)+chainhash.HashSize)
	if _, err := f.ReadAt(record, int64(bi.UndoPos)); err != nil {
		return nil, fmt.Errorf("failed to read undo record: %w", err)
	}
	payload, checksum := record[:size], record[size:]

	want := chainhash.DoubleHashB(append(bi.Header.PrevBlock[:], payload...))
	if !bytes.Equal(want, checksum) {
		return nil, fmt.Errorf("undo record checksum mismatch at height %d", bi.Height)
	}

	undo, err := decodeBlockUndo(payload, bi.Height)
	if err != nil {
		return nil, errors.WithMessagef(err, "corrupt undo record at height %d", bi.Height)
	}
	return undo, nil
}

// decodeBlockUndo parses a serialized block undo payload: a compactsize
// count of per-transaction records (coinbase excluded), each a compactsize
// counted vector of compressed spent coins.
func decodeBlockUndo(payload []byte, height int64) (*models.BlockUndo, error) {
	r := bytes.NewReader(payload)

	txCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.WithMessage(err, "tx undo count")
	}
	if txCount > uint64(len(payload)) {
		return nil, fmt.Errorf("tx undo count %d exceeds payload size", txCount)
	}

	undo := &models.BlockUndo{
		Height: height,
		Txs:    make([]models.TxUndo, 0, txCount),
	}
	for i := uint64(0); i < txCount; i++ {
		coinCount, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, errors.WithMessagef(err, "coin count of tx undo %d", i)
		}
		if coinCount > uint64(len(payload)) {
			return nil, fmt.Errorf("coin count %d of tx undo %d exceeds payload size", coinCount, i)
		}

		tx := models.TxUndo{Prevouts: make([]models.Prevout, 0, coinCount)}
		for j := uint64(0); j < coinCount; j++ {
			prevout, err := decodeCoin(r)
			if err != nil {
				return nil, errors.WithMessagef(err, "coin %d of tx undo %d", j, i)
			}
			tx.Prevouts = append(tx.Prevouts, prevout)
		}
		undo.Txs = append(undo.Txs, tx)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after undo data", r.Len())
	}
	return undo, nil
}

// decodeCoin parses one compressed spent coin: a height/coinbase code, a
// legacy dummy varint for non-zero heights, the compressed amount, and the
// compressed script public key.
func decodeCoin(r *bytes.Reader) (models.Prevout, error) {
	code, err := readVarInt(r)
	if err != nil {
		return models.Prevout{}, errors.WithMessage(err, "height code")
	}
	prevout := models.Prevout{
		Height:   int64(code >> 1),
		Coinbase: code&1 == 1,
	}
	if prevout.Height > 0 {
		if _, err := readVarInt(r); err != nil { // pre-0.8 version field
			return models.Prevout{}, errors.WithMessage(err, "dummy version")
		}
	}

	amount, err := readVarInt(r)
	if err != nil {
		return models.Prevout{}, errors.WithMessage(err, "amount")
	}
	prevout.Amount = decompressAmount(amount)

	kind, err := readVarInt(r)
	if err != nil {
		return models.Prevout{}, errors.WithMessage(err, "script kind")
	}
	payloadSize, err := compressedScriptPayloadSize(kind)
	if err != nil {
		return models.Prevout{}, err
	}
	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return models.Prevout{}, errors.WithMessage(err, "script payload")
	}
	prevout.ScriptPubKey, err = decompressScript(kind, payload)
	if err != nil {
		return models.Prevout{}, err
	}
	return prevout, nil
}
