package tx

import (
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultFeeBuffer is the headroom added on top of the required value so a
// selection survives small fee re-estimates.
const DefaultFeeBuffer = DustLimit

// Selection is the result of a greedy pass over the candidate pool.
type Selection struct {
	Inputs []*UTXO
	Total  uint64
}

// Keys returns the "txid:vout" keys of the selected inputs.
func (s *Selection) Keys() []string {
	keys := make([]string, len(s.Inputs))
	for i, u := range s.Inputs {
		keys[i] = u.Key()
	}
	return keys
}

// Selector hands out funding UTXOs for one job. Every UTXO it reserves is
// excluded from later selections, so no output is spent by two planned
// transactions.
type Selector struct {
	mu         sync.Mutex
	candidates []*UTXO
	spent      mapset.Set[string]
	feeBuffer  uint64
}

// NewSelector returns a selector over utxos, scanned in the given order.
func NewSelector(utxos []*UTXO, feeBuffer uint64) *Selector {
	candidates := make([]*UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u != nil {
			candidates = append(candidates, u)
		}
	}
	return &Selector{
		candidates: candidates,
		spent:      mapset.NewSet[string](),
		feeBuffer:  feeBuffer,
	}
}

// FeeBuffer returns the headroom applied by Select.
func (s *Selector) FeeBuffer() uint64 {
	return s.feeBuffer
}

// Select greedily accumulates unreserved candidates, in wallet order, until
// their total covers required plus the fee buffer. maxCount <= 0 means no
// input limit. Select does not reserve anything; call Reserve once the
// selection is committed to a transaction.
func (s *Selector) Select(required uint64, maxCount int) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := required + s.feeBuffer
	sel := &Selection{}
	capped := false
	for _, u := range s.candidates {
		if s.spent.Contains(u.Key()) {
			continue
		}
		if maxCount > 0 && len(sel.Inputs) >= maxCount {
			capped = true
			break
		}
		sel.Inputs = append(sel.Inputs, u)
		sel.Total += u.Amount
		if sel.Total >= target {
			return sel, nil
		}
	}

	ife := &InsufficientFundsError{Required: target, Available: s.available()}
	if capped && ife.Available >= target {
		ife.MaxInputs = maxCount
		ife.Selected = sel.Total
	}
	return nil, ife
}

// Reserve marks every input of sel as spent. Reserving an input twice is
// an error.
func (s *Selector) Reserve(sel *Selection) error {
	if sel == nil {
		return fmt.Errorf("%w: selection", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range sel.Inputs {
		if s.spent.Contains(u.Key()) {
			return fmt.Errorf("%w: %s already reserved", ErrInvalidParams, u.Key())
		}
	}
	for _, u := range sel.Inputs {
		s.spent.Add(u.Key())
	}
	return nil
}

// Add appends a candidate to the end of the pool, such as change produced
// by an earlier transaction in the same chain.
func (s *Selector) Add(u *UTXO) {
	if u == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append(s.candidates, u)
}

// IsReserved reports whether u has been reserved.
func (s *Selector) IsReserved(u *UTXO) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spent.Contains(u.Key())
}

// Available returns the total value of unreserved candidates.
func (s *Selector) Available() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available()
}

func (s *Selector) available() uint64 {
	var total uint64
	for _, u := range s.candidates {
		if !s.spent.Contains(u.Key()) {
			total += u.Amount
		}
	}
	return total
}
