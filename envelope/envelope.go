package envelope

import (
	"fmt"
	"unicode/utf8"

	"github.com/bsv-blockchain/go-sdk/script"
)

// ProtocolTag identifies an inscription envelope.
const ProtocolTag = "ord"

// ContentTypeFormat prefixes the content-type push.
const ContentTypeFormat byte = 0x01

// DefaultChunkSize is the per-push chunk size; the largest standard
// script element.
const DefaultChunkSize = 520

// HeaderLen is the number of body elements preceding the chunk pairs:
// tag, count, content type, separator.
const HeaderLen = 4

var (
	beginMarker = Elements{Opcode(script.OpFALSE), Opcode(script.OpIF)}
	endMarker   = Elements{Opcode(script.OpENDIF)}
)

// Envelope is an encoded inscription: the elements between the begin and
// end markers. The body is push-only, so any contiguous slice of it can be
// carried in a P2SH unlocking script.
type Envelope struct {
	ContentType string
	ChunkCount  int
	Body        Elements
}

// Header returns tag, count, content type and separator.
func (e *Envelope) Header() Elements {
	return e.Body[:HeaderLen]
}

// Pairs returns the (index, chunk) pairs in encoding order.
func (e *Envelope) Pairs() []Elements {
	rest := e.Body[HeaderLen:]
	pairs := make([]Elements, 0, len(rest)/2)
	for i := 0; i+1 < len(rest); i += 2 {
		pairs = append(pairs, rest[i:i+2])
	}
	return pairs
}

// Elements returns the full envelope including markers.
func (e *Envelope) Elements() Elements {
	return Frame(e.Body)
}

// Bytes serializes the full envelope.
func (e *Envelope) Bytes() ([]byte, error) {
	return e.Elements().Bytes()
}

// Frame wraps body elements in the begin and end markers.
func Frame(body Elements) Elements {
	out := make(Elements, 0, len(body)+len(beginMarker)+len(endMarker))
	out = append(out, beginMarker...)
	out = append(out, body...)
	return append(out, endMarker...)
}

// FrameSize returns the serialized size of the markers alone.
func FrameSize() int {
	return beginMarker.Size() + endMarker.Size()
}

// Codec builds inscription envelopes. The zero value uses DefaultChunkSize.
type Codec struct {
	ChunkSize int
}

// NewCodec returns a codec with the given chunk size; non-positive values
// select DefaultChunkSize.
func NewCodec(chunkSize int) *Codec {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Codec{ChunkSize: chunkSize}
}

func (c *Codec) chunkSize() int {
	if c == nil || c.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return c.ChunkSize
}

// Build splits payload into chunks and lays out the envelope. It is pure
// and deterministic.
func (c *Codec) Build(payload []byte, contentType string) (*Envelope, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrEncoding)
	}
	ct, err := encodeContentType(contentType)
	if err != nil {
		return nil, err
	}
	size := c.chunkSize()
	if PushSize(size) < 0 {
		return nil, fmt.Errorf("%w: chunk size %d exceeds largest push", ErrEncoding, size)
	}
	chunks, err := SplitIntoChunks(payload, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	body := make(Elements, 0, HeaderLen+2*len(chunks))
	body = append(body,
		Push([]byte(ProtocolTag)),
		Number(len(chunks)),
		Push(ct),
		Push([]byte{}),
	)
	for i := len(chunks) - 1; i >= 0; i-- {
		body = append(body, Number(i), Push(chunks[i]))
	}
	return &Envelope{
		ContentType: contentType,
		ChunkCount:  len(chunks),
		Body:        body,
	}, nil
}

// Encode returns the serialized envelope script for payload.
func (c *Codec) Encode(payload []byte, contentType string) ([]byte, error) {
	env, err := c.Build(payload, contentType)
	if err != nil {
		return nil, err
	}
	return env.Bytes()
}

func encodeContentType(contentType string) ([]byte, error) {
	if contentType == "" {
		return nil, fmt.Errorf("%w: empty content type", ErrEncoding)
	}
	if !utf8.ValidString(contentType) {
		return nil, fmt.Errorf("%w: content type is not valid UTF-8", ErrEncoding)
	}
	ct := make([]byte, 0, 1+len(contentType))
	ct = append(ct, ContentTypeFormat)
	ct = append(ct, contentType...)
	if PushSize(len(ct)) < 0 {
		return nil, fmt.Errorf("%w: content type too long", ErrEncoding)
	}
	return ct, nil
}
