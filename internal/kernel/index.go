package kernel

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// Block index status flags, matching the on-disk encoding.
const (
	statusValidMask  = 0x07
	statusValidChain = 4

	statusHaveData = 8
	statusHaveUndo = 16
)

// BlockIndex is one decoded block-index record: where the block sits in the
// chain and where its block and undo data live on disk.
type BlockIndex struct {
	Hash    chainhash.Hash
	Height  int64
	Status  uint32
	TxCount uint64
	File    uint32
	DataPos uint32
	UndoPos uint32
	Header  wire.BlockHeader
}

// HasUndo reports whether undo data was recorded for this block.
func (bi *BlockIndex) HasUndo() bool {
	return bi.Status&statusHaveUndo != 0
}

// chainValid reports whether the block passed chain-level validation, i.e.
// it is a candidate when picking the active tip.
func (bi *BlockIndex) chainValid() bool {
	return bi.Status&statusValidMask >= statusValidChain
}

// decodeBlockIndex parses a block-index record value. The layout is a run of
// varints (client version, height, status, tx count, then file/data/undo
// positions gated on the status flags) followed by the 80-byte block header.
func decodeBlockIndex(hash chainhash.Hash, value []byte) (*BlockIndex, error) {
	r := bytes.NewReader(value)

	if _, err := readVarInt(r); err != nil { // client version, unused
		return nil, errors.WithMessage(err, "client version")
	}
	height, err := readVarInt(r)
	if err != nil {
		return nil, errors.WithMessage(err, "height")
	}
	status, err := readVarInt(r)
	if err != nil {
		return nil, errors.WithMessage(err, "status")
	}
	txCount, err := readVarInt(r)
	if err != nil {
		return nil, errors.WithMessage(err, "tx count")
	}

	bi := &BlockIndex{
		Hash:    hash,
		Height:  int64(height),
		Status:  uint32(status),
		TxCount: txCount,
	}

	if bi.Status&(statusHaveData|statusHaveUndo) != 0 {
		file, err := readVarInt(r)
		if err != nil {
			return nil, errors.WithMessage(err, "file number")
		}
		bi.File = uint32(file)
	}
	if bi.Status&statusHaveData != 0 {
		pos, err := readVarInt(r)
		if err != nil {
			return nil, errors.WithMessage(err, "data position")
		}
		bi.DataPos = uint32(pos)
	}
	if bi.Status&statusHaveUndo != 0 {
		pos, err := readVarInt(r)
		if err != nil {
			return nil, errors.WithMessage(err, "undo position")
		}
		bi.UndoPos = uint32(pos)
	}

	if err := bi.Header.Deserialize(r); err != nil {
		return nil, errors.WithMessage(err, "block header")
	}
	return bi, nil
}
