package network

import "context"

// FundingSource is what an inscription job needs from the chain: the
// funding wallet's unspent outputs and a way to submit transactions.
type FundingSource interface {
	// ListUnspent returns all unspent transaction outputs for the given address,
	// in the order the wallet reports them.
	ListUnspent(ctx context.Context, address string) ([]*UTXO, error)

	// BroadcastTx submits a raw transaction hex to the network and returns the txid.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)
}

// OutputChecker reports whether a single output is still unspent. A job
// uses it, when the source provides it, to confirm its UTXO snapshot right
// before signing.
type OutputChecker interface {
	// GetUTXO returns the output, or an error wrapping ErrTxNotFound once it
	// is spent.
	GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error)
}

// BlockchainService is a full node: a funding source that can also check
// outputs, report confirmations and watch the funding address.
type BlockchainService interface {
	FundingSource
	OutputChecker

	// GetTxStatus returns the confirmation status of a transaction.
	GetTxStatus(ctx context.Context, txid string) (*TxStatus, error)

	// GetBestBlockHeight returns the height of the current chain tip.
	GetBestBlockHeight(ctx context.Context) (uint64, error)

	// ImportAddress imports a watch-only address into the node's wallet so that
	// ListUnspent can find its UTXOs. Safe to call multiple times.
	ImportAddress(ctx context.Context, address string, rescan bool) error
}

// UTXO represents an unspent transaction output as reported by a node.
type UTXO struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Amount        uint64 `json:"amount"` // koinu
	ScriptPubKey  string `json:"script_pubkey"`
	Address       string `json:"address"`
	Confirmations int64  `json:"confirmations"`
}

// TxStatus represents the confirmation status of a transaction.
type TxStatus struct {
	Confirmed     bool   `json:"confirmed"`
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"block_hash"`
	BlockHeight   uint64 `json:"block_height"`
}
