package envelope

import "errors"

var (
	// ErrEncoding indicates the payload or content type cannot be represented
	// as script pushes (oversize push, bad content-type encoding).
	ErrEncoding = errors.New("envelope: encoding failed")

	// ErrValidation indicates the payload fails the size policy.
	ErrValidation = errors.New("envelope: validation failed")

	// ErrNoEnvelope indicates no inscription envelope was found in a script.
	ErrNoEnvelope = errors.New("envelope: no envelope found")

	// ErrMalformed indicates an envelope was found but its layout is invalid.
	ErrMalformed = errors.New("envelope: malformed envelope")

	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("envelope: chunk size must be positive")
)
