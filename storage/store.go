// Package storage keeps inscription payloads on disk, addressed by their
// SHA-256 digest, so an upload outlives a failed or partial job.
package storage

import (
	"encoding/hex"
	"fmt"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// KeySize is the length of a payload key (SHA-256 output).
const KeySize = 32

// Store provides content-addressed payload storage.
type Store interface {
	// Put stores payload and returns its key. Storing the same bytes
	// twice is a no-op.
	Put(payload []byte) ([]byte, error)

	// Get returns the payload stored under key.
	Get(key []byte) ([]byte, error)

	// Has reports whether a payload exists for key.
	Has(key []byte) (bool, error)

	// Delete removes the payload stored under key.
	Delete(key []byte) error

	// Size returns the size in bytes of the payload stored under key.
	Size(key []byte) (int64, error)

	// List returns all stored keys.
	List() ([][]byte, error)
}

// Key returns the content address of payload.
func Key(payload []byte) []byte {
	return bsvhash.Sha256(payload)
}

// KeyHex returns Key(payload) hex encoded.
func KeyHex(payload []byte) string {
	return hex.EncodeToString(Key(payload))
}

// ParseKey decodes a hex payload key.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// validateKey checks that the key is exactly 32 bytes.
func validateKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	return nil
}
