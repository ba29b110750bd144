package envelope

import (
	"fmt"
)

// Payload size policy.
const (
	MaxPayloadSize         = 1 << 20   // 1 MiB hard ceiling
	RecommendedPayloadSize = 500 << 10 // 500 KiB soft ceiling
)

// Size estimate components for a one-transaction inscription.
const (
	txOverhead        = 10  // version, locktime, in/out counts
	p2pkhInputSize    = 148 // outpoint, sequence, sig+pubkey scriptSig
	p2pkhOutputSize   = 34  // value, script length, P2PKH script
	p2pkhLockPrefixSz = 25
)

// SizeCheck is the outcome of ValidateSize.
type SizeCheck struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	Warning    string `json:"warning,omitempty"`
	Size       int    `json:"size"`
	ChunkCount int    `json:"chunk_count"`
}

// ValidateSize checks payload against the hard and soft ceilings. Past the
// soft ceiling the payload stays valid and a warning is set.
func (c *Codec) ValidateSize(payload []byte) SizeCheck {
	size := len(payload)
	chunkSize := c.chunkSize()
	check := SizeCheck{
		Valid:      true,
		Size:       size,
		ChunkCount: (size + chunkSize - 1) / chunkSize,
	}
	switch {
	case size == 0:
		check.Valid = false
		check.Reason = "payload is empty"
	case size > MaxPayloadSize:
		check.Valid = false
		check.Reason = fmt.Sprintf("payload is %d bytes, maximum is %d", size, MaxPayloadSize)
	case size > RecommendedPayloadSize:
		check.Warning = fmt.Sprintf("payload is %d bytes, above the recommended %d; fees will be high", size, RecommendedPayloadSize)
	}
	return check
}

// ValidatePayload is ValidateSize as an error.
func (c *Codec) ValidatePayload(payload []byte) error {
	if check := c.ValidateSize(payload); !check.Valid {
		return fmt.Errorf("%w: %s", ErrValidation, check.Reason)
	}
	return nil
}

// EstimateSize predicts the size in bytes of a single transaction carrying
// the whole envelope in a P2PKH reveal output, funded by one P2PKH input
// with one change output.
func (c *Codec) EstimateSize(payload []byte, contentType string) (int, error) {
	env, err := c.Build(payload, contentType)
	if err != nil {
		return 0, err
	}
	lock := p2pkhLockPrefixSz + env.Elements().Size()
	return txOverhead + p2pkhInputSize + 8 + VarIntSize(lock) + lock + p2pkhOutputSize, nil
}

// VarIntSize returns the length of the compact-size prefix for n.
func VarIntSize(n int) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
