package chain

import (
	"fmt"

	"github.com/bitfsorg/doginals-go/envelope"
)

// Batch is a contiguous run of envelope body elements revealed by one
// transaction.
type Batch struct {
	Index    int
	Elements envelope.Elements
}

// Size returns the serialized size of the batch.
func (b Batch) Size() int {
	return b.Elements.Size()
}

// Len returns the number of elements in the batch.
func (b Batch) Len() int {
	return len(b.Elements)
}

// units splits body into its header and (index, chunk) pairs. Units are
// never split across batches.
func units(body envelope.Elements) ([]envelope.Elements, error) {
	if len(body) < envelope.HeaderLen {
		return nil, fmt.Errorf("%w: %d elements, header needs %d", ErrInvalidBody, len(body), envelope.HeaderLen)
	}
	if (len(body)-envelope.HeaderLen)%2 != 0 {
		return nil, fmt.Errorf("%w: unpaired chunk element", ErrInvalidBody)
	}
	if !body.PushOnly() {
		return nil, fmt.Errorf("%w: body is not push-only", ErrInvalidBody)
	}
	out := make([]envelope.Elements, 0, 1+(len(body)-envelope.HeaderLen)/2)
	out = append(out, body[:envelope.HeaderLen])
	for i := envelope.HeaderLen; i < len(body); i += 2 {
		out = append(out, body[i:i+2])
	}
	return out, nil
}

// Partition packs the envelope body into batches of at most maxPayload
// serialized bytes and MaxBatchElements elements. The header leads the
// first batch; each following pair goes into the current batch if it fits
// and starts a new batch otherwise.
func Partition(body envelope.Elements, maxPayload int) ([]Batch, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadPerTx
	}
	us, err := units(body)
	if err != nil {
		return nil, err
	}

	var (
		batches []Batch
		cur     envelope.Elements
		curSize int
	)
	flush := func() {
		batches = append(batches, Batch{Index: len(batches), Elements: cur})
		cur, curSize = nil, 0
	}
	for i, u := range us {
		size := u.Size()
		if size > maxPayload || len(u) > MaxBatchElements {
			return nil, fmt.Errorf("%w: unit %d is %d bytes, cap %d", ErrBatchTooLarge, i, size, maxPayload)
		}
		if len(cur) > 0 && (curSize+size > maxPayload || len(cur)+len(u) > MaxBatchElements) {
			flush()
		}
		cur = append(cur, u...)
		curSize += size
	}
	flush()
	return batches, nil
}
