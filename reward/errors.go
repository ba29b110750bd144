package reward

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPrice indicates a source answered with a non-positive or
	// unparsable price.
	ErrInvalidPrice = errors.New("reward: invalid price")

	// ErrUnsupportedPair indicates a source cannot quote the requested pair.
	ErrUnsupportedPair = errors.New("reward: unsupported pair")

	// ErrInvalidPair indicates a pair string could not be parsed.
	ErrInvalidPair = errors.New("reward: invalid pair")
)

// PriceFetchError describes a failed lookup against one price source. The
// Quoter absorbs it and falls back; it never reaches Quoter callers.
type PriceFetchError struct {
	Source string
	Pair   Pair
	Err    error
}

func (e *PriceFetchError) Error() string {
	return fmt.Sprintf("reward: fetch %s from %s: %v", e.Pair, e.Source, e.Err)
}

func (e *PriceFetchError) Unwrap() error { return e.Err }
