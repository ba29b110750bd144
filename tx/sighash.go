package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// SigHashAll is the legacy SIGHASH_ALL flag. Dogecoin never adopted the
// FORKID digest, so signatures commit to the original serialization.
const SigHashAll = 0x01

// LegacySignatureHash computes the pre-FORKID SIGHASH_ALL digest for input
// inputIndex, using subscript as the script code.
//
// The transaction is copied; every other input's unlocking script is
// emptied and the signed input carries subscript before the flag is
// appended and the result double-SHA256 hashed.
func LegacySignatureHash(t *transaction.Transaction, inputIndex int, subscript []byte) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: transaction", ErrNilParam)
	}
	if inputIndex < 0 || inputIndex >= len(t.Inputs) {
		return nil, fmt.Errorf("%w: input %d out of range (%d inputs)", ErrSigning, inputIndex, len(t.Inputs))
	}
	if len(subscript) == 0 {
		return nil, fmt.Errorf("%w: empty script code for input %d", ErrSigning, inputIndex)
	}

	c, err := transaction.NewTransactionFromBytes(t.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: copy transaction: %w", ErrSigning, err)
	}
	for i, in := range c.Inputs {
		if i == inputIndex {
			in.UnlockingScript = script.NewFromBytes(subscript)
			continue
		}
		in.UnlockingScript = &script.Script{}
	}

	preimage := binary.LittleEndian.AppendUint32(c.Bytes(), SigHashAll)
	digest := chainhash.DoubleHashH(preimage)
	return digest.CloneBytes(), nil
}
