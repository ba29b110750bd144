package tx

import (
	"errors"
	"fmt"
)

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("tx: required parameter is nil")

	// ErrInsufficientFunds indicates the available UTXOs cannot cover the
	// required value plus fees.
	ErrInsufficientFunds = errors.New("tx: insufficient funds")

	// ErrMaxInputs indicates the wallet holds enough value but a single
	// transaction may not spend enough of it under the input cap.
	ErrMaxInputs = errors.New("tx: max inputs per transaction reached")

	// ErrSigning indicates a transaction input could not be signed.
	ErrSigning = errors.New("tx: signing failed")

	// ErrScriptBuild indicates script construction failed.
	ErrScriptBuild = errors.New("tx: script build failed")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("tx: invalid parameters")
)

// InsufficientFundsError reports how far short a selection fell.
// It matches ErrInsufficientFunds with errors.Is, and ErrMaxInputs too when
// the input cap ended the scan.
type InsufficientFundsError struct {
	Required  uint64 // koinu needed, including the fee buffer
	Available uint64 // koinu held by all unreserved candidates
	MaxInputs int    // input cap that stopped the scan, zero if none did
	Selected  uint64 // koinu gathered by the capped scan
}

func (e *InsufficientFundsError) Error() string {
	if e.MaxInputs > 0 {
		return fmt.Sprintf("tx: insufficient funds: max inputs %d reached: %d inputs hold %d of required %d, wallet holds %d",
			e.MaxInputs, e.MaxInputs, e.Selected, e.Required, e.Available)
	}
	return fmt.Sprintf("tx: insufficient funds: required %d, available %d, short %d",
		e.Required, e.Available, e.Shortfall())
}

// Shortfall returns Required - Available, or zero. It is zero when only the
// input cap prevented the selection.
func (e *InsufficientFundsError) Shortfall() uint64 {
	if e.Available >= e.Required {
		return 0
	}
	return e.Required - e.Available
}

// Is makes errors.Is(err, ErrInsufficientFunds) hold.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds || (target == ErrMaxInputs && e.MaxInputs > 0)
}
