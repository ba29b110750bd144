package tx

import (
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// UTXO represents an unspent transaction output owned by the funding wallet.
type UTXO struct {
	TxID         []byte `json:"txid"`          // 32 bytes, internal byte order
	Vout         uint32 `json:"vout"`
	Amount       uint64 `json:"amount"`        // koinu
	ScriptPubKey []byte `json:"script_pubkey"` // locking script bytes
	Address      string `json:"address,omitempty"`
}

// NewUTXOFromHex builds a UTXO from the display-order txid and hex script
// returned by node RPCs.
func NewUTXOFromHex(txid string, vout uint32, amount uint64, scriptHex, address string) (*UTXO, error) {
	h, err := chainhash.NewHashFromHex(txid)
	if err != nil {
		return nil, fmt.Errorf("%w: txid %q: %w", ErrInvalidParams, txid, err)
	}
	spk, err := hex.DecodeString(scriptHex)
	if err != nil {
		return nil, fmt.Errorf("%w: script for %s:%d: %w", ErrInvalidParams, txid, vout, err)
	}
	return &UTXO{
		TxID:         h.CloneBytes(),
		Vout:         vout,
		Amount:       amount,
		ScriptPubKey: spk,
		Address:      address,
	}, nil
}

// TxIDHex returns the txid in display (reversed) order.
func (u *UTXO) TxIDHex() string {
	h, err := chainhash.NewHash(u.TxID)
	if err != nil {
		return hex.EncodeToString(u.TxID)
	}
	return h.String()
}

// Key identifies the output as "txid:vout".
func (u *UTXO) Key() string {
	return fmt.Sprintf("%s:%d", u.TxIDHex(), u.Vout)
}
