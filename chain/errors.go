package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrBatchTooLarge indicates a single envelope unit cannot fit in one
	// transaction under the current policy.
	ErrBatchTooLarge = errors.New("chain: unit exceeds per-transaction payload cap")

	// ErrInvalidBody indicates the envelope body is not a header followed
	// by index/chunk pairs.
	ErrInvalidBody = errors.New("chain: malformed envelope body")

	// ErrChainTooLong indicates an envelope needs more transactions than
	// the policy allows in one unconfirmed chain.
	ErrChainTooLong = errors.New("chain: chain longer than mempool ancestor limit")

	// ErrInvalidRequest indicates a plan request is missing or has invalid fields.
	ErrInvalidRequest = errors.New("chain: invalid plan request")

	// ErrBroadcast matches every *BroadcastError.
	ErrBroadcast = errors.New("chain: broadcast failed")
)

// BroadcastError reports the transaction that could not be submitted and
// every txid already accepted before it. Transactions after Index were
// never sent.
type BroadcastError struct {
	Index     int
	TxID      string
	Broadcast []string
	Err       error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("chain: broadcast tx %d (%s) failed with %d already broadcast: %v",
		e.Index, e.TxID, len(e.Broadcast), e.Err)
}

func (e *BroadcastError) Unwrap() error { return e.Err }

// Is reports whether target is ErrBroadcast.
func (e *BroadcastError) Is(target error) bool { return target == ErrBroadcast }

// Partial reports whether some of the chain reached the network.
func (e *BroadcastError) Partial() bool { return len(e.Broadcast) > 0 }
