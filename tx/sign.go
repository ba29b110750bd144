package tx

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/doginals-go/envelope"
)

// Prevout describes the output a funding input spends.
type Prevout struct {
	Amount        uint64
	LockingScript []byte
}

// signDigest signs the legacy digest of inputIndex and returns the
// DER signature with the sighash flag appended.
func signDigest(t *transaction.Transaction, inputIndex int, subscript []byte, key *ec.PrivateKey) ([]byte, error) {
	digest, err := LegacySignatureHash(t, inputIndex, subscript)
	if err != nil {
		return nil, err
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("%w: input %d: %w", ErrSigning, inputIndex, err)
	}
	return append(sig.Serialize(), SigHashAll), nil
}

// SignChainLink signs the chained P2SH input at inputIndex and installs its
// unlocking script:
//
//	<revealed pushes...> <sig> <redeem>
//
// redeem is the lock guarding the spent anchor and is used as the script
// code for the signature. revealed must be push-only.
func SignChainLink(t *transaction.Transaction, inputIndex int, redeem []byte, revealed envelope.Elements, key *ec.PrivateKey) (*script.Script, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: transaction", ErrNilParam)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: nil signing key", ErrSigning)
	}
	if len(redeem) == 0 {
		return nil, fmt.Errorf("%w: empty redeem script", ErrSigning)
	}
	if !revealed.PushOnly() {
		return nil, fmt.Errorf("%w: revealed data must be push-only", ErrSigning)
	}

	sig, err := signDigest(t, inputIndex, redeem, key)
	if err != nil {
		return nil, err
	}

	elems := make(envelope.Elements, 0, len(revealed)+2)
	elems = append(elems, revealed...)
	elems = append(elems, envelope.Push(sig), envelope.Push(redeem))
	unlock, err := elems.Script()
	if err != nil {
		return nil, fmt.Errorf("%w: unlocking script: %w", ErrSigning, err)
	}
	t.Inputs[inputIndex].UnlockingScript = unlock
	return unlock, nil
}

// SignFunding signs every standard P2PKH input of t. prevouts is aligned
// with t.Inputs; a nil entry marks an input signed elsewhere (the chained
// anchor) and is skipped. It must run after all outputs are final.
func SignFunding(t *transaction.Transaction, prevouts []*Prevout, key *ec.PrivateKey) error {
	if t == nil {
		return fmt.Errorf("%w: transaction", ErrNilParam)
	}
	if key == nil {
		return fmt.Errorf("%w: nil signing key", ErrSigning)
	}
	if len(prevouts) != len(t.Inputs) {
		return fmt.Errorf("%w: have %d prevouts but tx has %d inputs",
			ErrSigning, len(prevouts), len(t.Inputs))
	}

	pubKey := key.PubKey().Compressed()
	for i, prev := range prevouts {
		if prev == nil {
			continue
		}
		if len(prev.LockingScript) == 0 {
			return fmt.Errorf("%w: input %d has empty prevout script", ErrSigning, i)
		}
		sig, err := signDigest(t, i, prev.LockingScript, key)
		if err != nil {
			return err
		}
		unlock, err := envelope.Elements{envelope.Push(sig), envelope.Push(pubKey)}.Script()
		if err != nil {
			return fmt.Errorf("%w: input %d unlocking script: %w", ErrSigning, i, err)
		}
		t.Inputs[i].UnlockingScript = unlock
	}
	return nil
}
