package envelope

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

// Push tier boundaries.
const (
	MaxDirectPush = 75
	MaxPushData1  = 0xff
	MaxPushData2  = 0xffff
)

// PushData encodes data as a single canonical script push.
//
//	0 bytes      -> 0x00
//	1..75        -> <len> <data>
//	76..255      -> OP_PUSHDATA1 <len> <data>
//	256..65535   -> OP_PUSHDATA2 <len LE16> <data>
//
// Anything larger fails with ErrEncoding.
func PushData(data []byte) ([]byte, error) {
	n := len(data)
	switch {
	case n == 0:
		return []byte{script.Op0}, nil
	case n <= MaxDirectPush:
		out := make([]byte, 0, 1+n)
		out = append(out, byte(n))
		return append(out, data...), nil
	case n <= MaxPushData1:
		out := make([]byte, 0, 2+n)
		out = append(out, script.OpPUSHDATA1, byte(n))
		return append(out, data...), nil
	case n <= MaxPushData2:
		out := make([]byte, 3, 3+n)
		out[0] = script.OpPUSHDATA2
		binary.LittleEndian.PutUint16(out[1:], uint16(n))
		return append(out, data...), nil
	default:
		return nil, fmt.Errorf("%w: push of %d bytes exceeds %d", ErrEncoding, n, MaxPushData2)
	}
}

// PushSize returns the serialized size of a push of n bytes, or -1 when n
// is beyond the largest tier.
func PushSize(n int) int {
	switch {
	case n == 0:
		return 1
	case n <= MaxDirectPush:
		return 1 + n
	case n <= MaxPushData1:
		return 2 + n
	case n <= MaxPushData2:
		return 3 + n
	default:
		return -1
	}
}

// scriptNum encodes n as a minimal little-endian script number.
func scriptNum(n int64) []byte {
	if n == 0 {
		return nil
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var out []byte
	for n > 0 {
		out = append(out, byte(n&0xff))
		n >>= 8
	}
	if out[len(out)-1]&0x80 != 0 {
		if neg {
			out = append(out, 0x80)
		} else {
			out = append(out, 0x00)
		}
	} else if neg {
		out[len(out)-1] |= 0x80
	}
	return out
}

// parseScriptNum decodes a minimal little-endian script number.
func parseScriptNum(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	var n int64
	for i, v := range b {
		n |= int64(v) << (8 * uint(i))
	}
	if b[len(b)-1]&0x80 != 0 {
		n &^= int64(0x80) << (8 * uint(len(b)-1))
		return -n
	}
	return n
}
