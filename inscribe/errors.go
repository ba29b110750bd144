package inscribe

import "errors"

var (
	// ErrInvalidRecipient indicates the recipient is not a P2PKH address of
	// the configured network.
	ErrInvalidRecipient = errors.New("inscribe: invalid recipient address")

	// ErrMissingDependency indicates New was called without a required
	// collaborator.
	ErrMissingDependency = errors.New("inscribe: missing dependency")

	// ErrFunding indicates the funding wallet's UTXOs could not be listed,
	// or a listed UTXO was spent before the chain was signed.
	ErrFunding = errors.New("inscribe: funding UTXOs unavailable")

	// ErrClosed indicates the service was closed.
	ErrClosed = errors.New("inscribe: service closed")
)
