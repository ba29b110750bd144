package storage

import "errors"

var (
	// ErrNotFound indicates no payload exists for the given key.
	ErrNotFound = errors.New("storage: payload not found")

	// ErrInvalidKey indicates the key is not a 32-byte SHA-256 digest.
	ErrInvalidKey = errors.New("storage: key must be 32 bytes")

	// ErrIOFailure indicates a file read/write error.
	ErrIOFailure = errors.New("storage: I/O failure")

	// ErrEmptyPayload indicates an attempt to store an empty payload.
	ErrEmptyPayload = errors.New("storage: payload is empty")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("storage: invalid base directory")

	// ErrCorrupt indicates stored bytes no longer hash to their key.
	ErrCorrupt = errors.New("storage: payload does not match its key")
)
