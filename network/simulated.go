package network

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// SimulatedService is an in-memory FundingSource for dry runs and tests.
// Broadcast transactions are parsed, their inputs removed from the UTXO
// set, and outputs paying a funded address's script added back, so a
// chain of dependent transactions can be submitted in order.
type SimulatedService struct {
	mu        sync.Mutex
	utxos     []*UTXO
	scripts   map[string]string // script hex -> address
	broadcast []string
	seq       int

	// FailOn, when set, is consulted before accepting the n-th broadcast
	// (zero-based) and may return an error to reject it.
	FailOn func(n int, rawTxHex string) error
}

var (
	_ FundingSource = (*SimulatedService)(nil)
	_ OutputChecker = (*SimulatedService)(nil)
)

// NewSimulatedService returns an empty simulated funding source.
func NewSimulatedService() *SimulatedService {
	return &SimulatedService{scripts: make(map[string]string)}
}

// Fund adds a confirmed UTXO of koinu paying scriptPubKey, owned by address.
func (s *SimulatedService) Fund(address string, scriptPubKey []byte, koinu uint64) *UTXO {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	txid := chainhash.DoubleHashH([]byte(fmt.Sprintf("simulated-funding-%s-%d", address, s.seq)))
	spk := hex.EncodeToString(scriptPubKey)
	s.scripts[spk] = address
	u := &UTXO{
		TxID:          txid.String(),
		Vout:          0,
		Amount:        koinu,
		ScriptPubKey:  spk,
		Address:       address,
		Confirmations: 6,
	}
	s.utxos = append(s.utxos, u)
	return u
}

// ListUnspent implements FundingSource.
func (s *SimulatedService) ListUnspent(_ context.Context, address string) ([]*UTXO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*UTXO
	for _, u := range s.utxos {
		if u.Address == address {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

// BroadcastTx implements FundingSource. The returned txid is the hash of
// the submitted bytes.
func (s *SimulatedService) BroadcastTx(_ context.Context, rawTxHex string) (string, error) {
	raw, err := hex.DecodeString(rawTxHex)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex: %w", ErrBroadcastRejected, err)
	}
	t, err := transaction.NewTransactionFromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailOn != nil {
		if err := s.FailOn(len(s.broadcast), rawTxHex); err != nil {
			return "", err
		}
	}

	txid := t.TxID().String()
	for _, in := range t.Inputs {
		s.spend(in.SourceTXID.String(), in.SourceTxOutIndex)
	}
	for vout, out := range t.Outputs {
		if out.LockingScript == nil {
			continue
		}
		spk := hex.EncodeToString(*out.LockingScript)
		addr, ok := s.scripts[spk]
		if !ok {
			continue
		}
		s.utxos = append(s.utxos, &UTXO{
			TxID:         txid,
			Vout:         uint32(vout),
			Amount:       out.Satoshis,
			ScriptPubKey: spk,
			Address:      addr,
		})
	}
	s.broadcast = append(s.broadcast, rawTxHex)
	return txid, nil
}

// GetUTXO implements OutputChecker.
func (s *SimulatedService) GetUTXO(_ context.Context, txid string, vout uint32) (*UTXO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.utxos {
		if u.TxID == txid && u.Vout == vout {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: output %s:%d is spent", ErrTxNotFound, txid, vout)
}

// Spend removes an output as if a transaction outside this service had
// spent it.
func (s *SimulatedService) Spend(txid string, vout uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spend(txid, vout)
}

func (s *SimulatedService) spend(txid string, vout uint32) {
	for i, u := range s.utxos {
		if u.TxID == txid && u.Vout == vout {
			s.utxos = append(s.utxos[:i], s.utxos[i+1:]...)
			return
		}
	}
}

// Broadcasts returns the raw hex of every accepted transaction, in order.
func (s *SimulatedService) Broadcasts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.broadcast...)
}

// Transactions parses every accepted transaction.
func (s *SimulatedService) Transactions() ([]*transaction.Transaction, error) {
	var out []*transaction.Transaction
	for _, h := range s.Broadcasts() {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return nil, err
		}
		t, err := transaction.NewTransactionFromBytes(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
