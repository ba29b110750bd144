package envelope

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/bsv-blockchain/go-sdk/script"
)

// envelopePattern is OP_FALSE OP_IF <push "ord">.
var envelopePattern = []byte{script.OpFALSE, script.OpIF, byte(len(ProtocolTag)), 'o', 'r', 'd'}

// Inscription is a decoded envelope.
type Inscription struct {
	ContentType string
	ChunkCount  int
	Payload     []byte
}

// Decode locates the envelope inside raw (which may carry a locking-script
// prefix such as P2PKH) and reassembles the payload in ascending chunk order.
func Decode(raw []byte) (*Inscription, error) {
	idx := bytes.Index(raw, envelopePattern)
	if idx == -1 {
		return nil, ErrNoEnvelope
	}
	elems, err := ParseElements(raw[idx+2:])
	if err != nil {
		return nil, err
	}
	end := -1
	for i, e := range elems {
		if !e.IsData() && e.Op == script.OpENDIF {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("%w: missing end marker", ErrMalformed)
	}
	return DecodeBody(elems[:end])
}

// DecodeBody reassembles a payload from envelope body elements (everything
// between the markers).
func DecodeBody(body Elements) (*Inscription, error) {
	if len(body) < HeaderLen {
		return nil, fmt.Errorf("%w: truncated header", ErrMalformed)
	}
	if !body[0].IsData() || string(body[0].Data) != ProtocolTag {
		return nil, fmt.Errorf("%w: missing protocol tag", ErrMalformed)
	}
	count, ok := body[1].AsNumber()
	if !ok || count <= 0 {
		return nil, fmt.Errorf("%w: invalid chunk count", ErrMalformed)
	}
	ct := body[2]
	if !ct.IsData() || len(ct.Data) == 0 || ct.Data[0] != ContentTypeFormat {
		return nil, fmt.Errorf("%w: invalid content type field", ErrMalformed)
	}
	contentType := string(ct.Data[1:])
	if !utf8.ValidString(contentType) {
		return nil, fmt.Errorf("%w: content type is not valid UTF-8", ErrMalformed)
	}
	if sep := body[3]; (sep.IsData() && len(sep.Data) != 0) || (!sep.IsData() && sep.Op != script.Op0) {
		return nil, fmt.Errorf("%w: missing separator", ErrMalformed)
	}

	rest := body[HeaderLen:]
	if len(rest) != 2*count {
		return nil, fmt.Errorf("%w: expected %d chunk pairs, found %d elements", ErrMalformed, count, len(rest))
	}
	chunks := make([][]byte, count)
	for i := 0; i < len(rest); i += 2 {
		n, ok := rest[i].AsNumber()
		if !ok || n < 0 || n >= count {
			return nil, fmt.Errorf("%w: invalid chunk index at element %d", ErrMalformed, HeaderLen+i)
		}
		if chunks[n] != nil {
			return nil, fmt.Errorf("%w: duplicate chunk index %d", ErrMalformed, n)
		}
		data := rest[i+1]
		if !data.IsData() && data.Op != script.Op0 {
			return nil, fmt.Errorf("%w: chunk %d is not a push", ErrMalformed, n)
		}
		chunks[n] = append([]byte{}, data.Data...)
	}

	var payload bytes.Buffer
	for _, c := range chunks {
		payload.Write(c)
	}
	return &Inscription{
		ContentType: contentType,
		ChunkCount:  count,
		Payload:     payload.Bytes(),
	}, nil
}
