package tx

import (
	"fmt"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/doginals-go/envelope"
)

const (
	// CompressedPubKeyLen is the length of a compressed secp256k1 key.
	CompressedPubKeyLen = 33

	// PubKeyHashLen is the length of a HASH160 digest.
	PubKeyHashLen = 20

	// TxIDLen is the length of a transaction hash.
	TxIDLen = 32

	// MaxRedeemScriptSize is the largest script element, which bounds a
	// P2SH redeem script.
	MaxRedeemScriptSize = 520
)

// Hash160 returns RIPEMD160(SHA256(b)).
func Hash160(b []byte) []byte {
	return bsvhash.Hash160(b)
}

// LockElements returns the chain-link redeem script as elements:
//
//	<pubkey> OP_CHECKSIGVERIFY OP_DROP*n OP_TRUE
//
// n is the number of revealed elements pushed ahead of the signature.
func LockElements(pubKey []byte, n int) (envelope.Elements, error) {
	if len(pubKey) != CompressedPubKeyLen {
		return nil, fmt.Errorf("%w: public key must be %d bytes", ErrInvalidParams, CompressedPubKeyLen)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative drop count", ErrInvalidParams)
	}
	elems := make(envelope.Elements, 0, n+3)
	elems = append(elems, envelope.Push(pubKey), envelope.Opcode(script.OpCHECKSIGVERIFY))
	for i := 0; i < n; i++ {
		elems = append(elems, envelope.Opcode(script.OpDROP))
	}
	return append(elems, envelope.Opcode(script.OpTRUE)), nil
}

// LockScript serializes LockElements.
func LockScript(pubKey []byte, n int) ([]byte, error) {
	elems, err := LockElements(pubKey, n)
	if err != nil {
		return nil, err
	}
	raw, err := elems.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	if len(raw) > MaxRedeemScriptSize {
		return nil, fmt.Errorf("%w: redeem script is %d bytes, limit %d", ErrScriptBuild, len(raw), MaxRedeemScriptSize)
	}
	return raw, nil
}

// P2SHLock returns OP_HASH160 <hash160(redeem)> OP_EQUAL.
func P2SHLock(redeem []byte) (*script.Script, error) {
	if len(redeem) == 0 {
		return nil, fmt.Errorf("%w: redeem script", ErrNilParam)
	}
	s := &script.Script{}
	if err := s.AppendOpcodes(script.OpHASH160); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	if err := s.AppendPushData(Hash160(redeem)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	if err := s.AppendOpcodes(script.OpEQUAL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	return s, nil
}

// P2PKHLock returns the P2PKH locking script for a 20-byte key hash.
func P2PKHLock(pubKeyHash []byte) (*script.Script, error) {
	if len(pubKeyHash) != PubKeyHashLen {
		return nil, fmt.Errorf("%w: key hash must be %d bytes", ErrInvalidParams, PubKeyHashLen)
	}
	addr, err := script.NewAddressFromPublicKeyHash(pubKeyHash, true)
	if err != nil {
		return nil, fmt.Errorf("%w: address from hash: %w", ErrScriptBuild, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock: %w", ErrScriptBuild, err)
	}
	return lock, nil
}

// BuildP2PKHScript creates a P2PKH locking script for the given public key.
func BuildP2PKHScript(pubKey *ec.PublicKey) ([]byte, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("%w: public key", ErrNilParam)
	}
	lock, err := P2PKHLock(Hash160(pubKey.Compressed()))
	if err != nil {
		return nil, err
	}
	return []byte(*lock), nil
}

// InscriptionLock returns a P2PKH lock for pubKeyHash followed by a framed
// envelope body, so the output is both spendable by the recipient and
// carries the inscription data.
//
// The result matches no standard output template. Default Dogecoin Core
// nodes refuse to relay a transaction creating it (scriptpubkey); the reveal
// needs a node started with -acceptnonstdtxn=1 or a miner that accepts
// non-standard transactions directly.
func InscriptionLock(pubKeyHash []byte, body envelope.Elements) (*script.Script, error) {
	lock, err := P2PKHLock(pubKeyHash)
	if err != nil {
		return nil, err
	}
	tail, err := envelope.Frame(body).Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, err)
	}
	out := make(script.Script, 0, len(*lock)+len(tail))
	out = append(out, *lock...)
	out = append(out, tail...)
	return &out, nil
}

// BuildOutput wraps a locking script and amount into a transaction output.
func BuildOutput(lock *script.Script, koinu uint64) *transaction.TransactionOutput {
	return &transaction.TransactionOutput{
		Satoshis:      koinu,
		LockingScript: lock,
	}
}
