package chain

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/tx"
)

// SignedTx is a fully signed chain transaction ready for broadcast.
type SignedTx struct {
	Index int
	Tx    *transaction.Transaction
	Hash  *chainhash.Hash
	TxID  string // display order
	Raw   []byte
}

// Hex returns the raw transaction as hex.
func (s *SignedTx) Hex() string {
	return hex.EncodeToString(s.Raw)
}

// Builder turns a Plan into signed transactions.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a builder.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build assembles and signs every transaction of plan in order. Each
// transaction's txid is fixed once it is signed, which resolves the
// anchor and change references of the transactions after it. key signs
// both the chain links and the funding inputs, so it must own the plan's
// link key and every funding UTXO.
func (b *Builder) Build(plan *Plan, key *ec.PrivateKey) ([]*SignedTx, error) {
	if plan == nil || len(plan.Txs) == 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidRequest)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: nil signing key", tx.ErrSigning)
	}
	if !bytes.Equal(key.PubKey().Compressed(), plan.LinkKey) {
		return nil, fmt.Errorf("%w: key does not match the plan's link key", tx.ErrSigning)
	}

	signed := make([]*SignedTx, 0, len(plan.Txs))
	for _, spec := range plan.Txs {
		s, err := b.buildOne(spec, signed, key)
		if err != nil {
			return nil, fmt.Errorf("chain: tx %d: %w", spec.Index, err)
		}
		if len(s.Raw) > spec.Size {
			b.logger.Warn("signed tx larger than estimate",
				zap.Int("index", spec.Index), zap.Int("size", len(s.Raw)), zap.Int("estimate", spec.Size))
		}
		b.logger.Debug("signed chain tx",
			zap.Int("index", spec.Index), zap.String("txid", s.TxID), zap.Int("size", len(s.Raw)))
		signed = append(signed, s)
	}
	return signed, nil
}

func (b *Builder) buildOne(spec *TxSpec, parents []*SignedTx, key *ec.PrivateKey) (*SignedTx, error) {
	t := transaction.NewTransaction()
	prevouts := make([]*tx.Prevout, 0, len(spec.Funding)+1)

	if spec.Prev != nil {
		if spec.Prev.Index >= len(parents) {
			return nil, fmt.Errorf("%w: anchor %d not signed yet", ErrInvalidRequest, spec.Prev.Index)
		}
		t.AddInput(&transaction.TransactionInput{
			SourceTXID:       parents[spec.Prev.Index].Hash,
			SourceTxOutIndex: 0,
			UnlockingScript:  &script.Script{},
			SequenceNumber:   transaction.DefaultSequenceNumber,
		})
		prevouts = append(prevouts, nil)
	}

	for _, f := range spec.Funding {
		txid, err := chainhash.NewHash(f.UTXO.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: funding txid: %w", ErrInvalidRequest, err)
		}
		if f.ChangeOf != NoChange {
			if f.ChangeOf >= len(parents) {
				return nil, fmt.Errorf("%w: change of tx %d not signed yet", ErrInvalidRequest, f.ChangeOf)
			}
			txid = parents[f.ChangeOf].Hash
		}
		t.AddInput(&transaction.TransactionInput{
			SourceTXID:       txid,
			SourceTxOutIndex: f.UTXO.Vout,
			UnlockingScript:  &script.Script{},
			SequenceNumber:   transaction.DefaultSequenceNumber,
		})
		prevouts = append(prevouts, &tx.Prevout{Amount: f.UTXO.Amount, LockingScript: f.UTXO.ScriptPubKey})
	}

	for _, o := range spec.Outputs {
		lock := script.NewFromBytes(o.Lock)
		t.AddOutput(tx.BuildOutput(lock, o.Value))
	}

	if spec.Prev != nil {
		if _, err := tx.SignChainLink(t, 0, spec.Prev.Redeem, spec.Prev.Batch.Elements, key); err != nil {
			return nil, err
		}
	}
	if err := tx.SignFunding(t, prevouts, key); err != nil {
		return nil, err
	}

	hash := t.TxID()
	return &SignedTx{
		Index: spec.Index,
		Tx:    t,
		Hash:  hash,
		TxID:  hash.String(),
		Raw:   t.Bytes(),
	}, nil
}
