package models

// Prevout is a single spent output as recorded in a block's undo data,
// carrying the script public key of the output being spent.
type Prevout struct {
	Height       int64
	Coinbase     bool
	Amount       int64
	ScriptPubKey []byte
}

// TxUndo holds the spent prevouts of one transaction, in input order.
// Coinbase transactions have no undo record.
type TxUndo struct {
	Prevouts []Prevout
}

// BlockUndo is the per-transaction spend data of one block.
type BlockUndo struct {
	Height int64
	Txs    []TxUndo
}

// BlockResult is the aggregated statistics for one scanned block height.
// Field order matches the CSV column order.
type BlockResult struct {
	Height         int64
	TotalTxs       uint64
	TotalInputs    uint64
	MixedTxCount   uint64
	SchnorrSigs    uint64
	NonSchnorrSigs uint64
}
