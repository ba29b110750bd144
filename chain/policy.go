package chain

import (
	"fmt"

	"github.com/bitfsorg/doginals-go/tx"
)

// DefaultMaxPayloadPerTx caps the serialized envelope bytes one transaction reveals.
const DefaultMaxPayloadPerTx = 1500

// DefaultMaxInputsPerTx caps the funding inputs of a single transaction.
const DefaultMaxInputsPerTx = 10

// DefaultMaxChainLength matches the default unconfirmed ancestor limit of
// Dogecoin Core; the node rejects a longer chain with too-long-mempool-chain.
const DefaultMaxChainLength = 25

// MaxBatchElements bounds how many elements one batch may hold: the lock
// guarding it carries one OP_DROP per element and must fit in a single
// script element.
const MaxBatchElements = tx.MaxRedeemScriptSize - (1 + tx.CompressedPubKeyLen) - 2

// Policy holds the tunables of chain planning.
type Policy struct {
	MaxPayloadPerTx int    `mapstructure:"max_payload_per_tx" yaml:"max_payload_per_tx"`
	Dust            uint64 `mapstructure:"dust" yaml:"dust"`
	FeeRate         uint64 `mapstructure:"fee_rate" yaml:"fee_rate"` // koinu per 1000 bytes
	MaxInputsPerTx  int    `mapstructure:"max_inputs_per_tx" yaml:"max_inputs_per_tx"` // negative: unlimited
	MaxChainLength  int    `mapstructure:"max_chain_length" yaml:"max_chain_length"`   // negative: unlimited
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxPayloadPerTx: DefaultMaxPayloadPerTx,
		Dust:            tx.DustLimit,
		FeeRate:         tx.DefaultFeeRate,
		MaxInputsPerTx:  DefaultMaxInputsPerTx,
		MaxChainLength:  DefaultMaxChainLength,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxPayloadPerTx <= 0 {
		p.MaxPayloadPerTx = d.MaxPayloadPerTx
	}
	if p.Dust == 0 {
		p.Dust = d.Dust
	}
	if p.FeeRate == 0 {
		p.FeeRate = d.FeeRate
	}
	if p.MaxInputsPerTx == 0 {
		p.MaxInputsPerTx = d.MaxInputsPerTx
	}
	if p.MaxChainLength == 0 {
		p.MaxChainLength = d.MaxChainLength
	}
	return p
}

// Validate checks the policy for values that can never produce a chain.
func (p Policy) Validate() error {
	if p.MaxPayloadPerTx < 0 {
		return fmt.Errorf("%w: negative max payload per tx", ErrInvalidRequest)
	}
	if p.Dust > 0 && p.Dust < tx.DustLimit {
		return fmt.Errorf("%w: dust %d below relay limit %d", ErrInvalidRequest, p.Dust, tx.DustLimit)
	}
	return nil
}
