package envelope

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
)

// Element is a single script element: either a bare opcode or a data push.
// The codec, chain planner and signer all build scripts out of Elements so
// that an element's serialized form is decided in exactly one place.
type Element struct {
	Op   byte
	Data []byte
	push bool
}

// Opcode returns an opcode element.
func Opcode(op byte) Element {
	return Element{Op: op}
}

// Push returns a data push element.
func Push(data []byte) Element {
	return Element{Data: data, push: true}
}

// Number returns the minimal push for n: OP_0, OP_1..OP_16, or a
// little-endian script number push.
func Number(n int) Element {
	switch {
	case n == 0:
		return Opcode(script.Op0)
	case n >= 1 && n <= 16:
		return Opcode(script.Op1 + byte(n-1))
	default:
		return Push(scriptNum(int64(n)))
	}
}

// IsData reports whether e carries explicit push data.
func (e Element) IsData() bool { return e.push }

// IsPush reports whether e only pushes to the stack, which is what a P2SH
// unlocking script is limited to.
func (e Element) IsPush() bool {
	if e.push {
		return true
	}
	return e.Op == script.Op0 || (e.Op >= script.Op1 && e.Op <= script.Op16) || e.Op == script.Op1NEGATE
}

// AsNumber interprets a push element as a script number.
func (e Element) AsNumber() (int, bool) {
	switch {
	case e.push:
		if len(e.Data) > 4 {
			return 0, false
		}
		return int(parseScriptNum(e.Data)), true
	case e.Op == script.Op0:
		return 0, true
	case e.Op >= script.Op1 && e.Op <= script.Op16:
		return int(e.Op-script.Op1) + 1, true
	}
	return 0, false
}

// Bytes serializes the element.
func (e Element) Bytes() ([]byte, error) {
	if !e.push {
		return []byte{e.Op}, nil
	}
	return PushData(e.Data)
}

// Size returns the serialized size of the element.
func (e Element) Size() int {
	if !e.push {
		return 1
	}
	return PushSize(len(e.Data))
}

// String renders the element in ASM-like form for logs.
func (e Element) String() string {
	if !e.push {
		return fmt.Sprintf("op:%#02x", e.Op)
	}
	return fmt.Sprintf("push:%d", len(e.Data))
}

// Elements is an ordered run of script elements.
type Elements []Element

// Bytes serializes every element in order.
func (es Elements) Bytes() ([]byte, error) {
	out := make([]byte, 0, es.Size())
	for i, e := range es {
		b, err := e.Bytes()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// Size returns the total serialized size.
func (es Elements) Size() int {
	n := 0
	for _, e := range es {
		n += e.Size()
	}
	return n
}

// PushOnly reports whether every element is a push.
func (es Elements) PushOnly() bool {
	for _, e := range es {
		if !e.IsPush() {
			return false
		}
	}
	return true
}

// Script serializes the elements into a go-sdk script.
func (es Elements) Script() (*script.Script, error) {
	b, err := es.Bytes()
	if err != nil {
		return nil, err
	}
	return script.NewFromBytes(b), nil
}

// ParseElements splits a raw script into elements.
func ParseElements(raw []byte) (Elements, error) {
	chunks, err := script.NewFromBytes(raw).Chunks()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	out := make(Elements, 0, len(chunks))
	for _, c := range chunks {
		if c.Op > 0 && c.Op <= script.OpPUSHDATA4 {
			data := c.Data
			if data == nil {
				data = []byte{}
			}
			out = append(out, Push(data))
			continue
		}
		out = append(out, Opcode(c.Op))
	}
	return out, nil
}
