package chain

import (
	"bytes"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/envelope"
	"github.com/bitfsorg/doginals-go/tx"
)

// NoChange marks a Funding entry that spends a wallet UTXO.
const NoChange = -1

// Anchor is output 0 of an earlier transaction in the chain, locked to
// P2SH(Redeem). Spending it reveals Batch.
type Anchor struct {
	Index  int
	Redeem []byte
	Batch  Batch
	Value  uint64
}

// Funding is a P2PKH input paying for a transaction. ChangeOf is the index
// of the chain transaction whose change output it spends, or NoChange for
// a wallet UTXO. For change the UTXO txid is a placeholder that the
// builder replaces with the signed parent's txid.
type Funding struct {
	UTXO     *tx.UTXO
	ChangeOf int
}

// Output is a planned transaction output.
type Output struct {
	Lock  []byte
	Value uint64
}

// TxSpec is one planned transaction.
type TxSpec struct {
	Index int
	Batch Batch

	// Redeem is the lock on this transaction's anchor; nil for the reveal.
	Redeem []byte
	// Prev is the anchor this transaction spends as input 0; nil for the first.
	Prev *Anchor

	Funding []*Funding
	Outputs []*Output

	Size   int    // estimated upper bound of the signed size
	Fee    uint64 // koinu
	Change uint64 // koinu; 0 when no change output
	Reveal bool
}

// Revealed returns the batches this transaction makes public, in body
// order: the spent anchor's batch, then the reveal output's own batch.
func (s *TxSpec) Revealed() []Batch {
	var out []Batch
	if s.Prev != nil {
		out = append(out, s.Prev.Batch)
	}
	if s.Reveal {
		out = append(out, s.Batch)
	}
	return out
}

// FundingTotal sums the funding inputs.
func (s *TxSpec) FundingTotal() uint64 {
	var total uint64
	for _, f := range s.Funding {
		total += f.UTXO.Amount
	}
	return total
}

// Plan is an ordered chain of transactions that together reveal one envelope.
type Plan struct {
	Txs       []*TxSpec
	TotalFee  uint64
	Reward    uint64
	Recipient []byte
	LinkKey   []byte
}

// Body concatenates every batch in chain order.
func (p *Plan) Body() envelope.Elements {
	var body envelope.Elements
	for _, s := range p.Txs {
		body = append(body, s.Batch.Elements...)
	}
	return body
}

// Envelope returns the reconstructed envelope elements.
func (p *Plan) Envelope() envelope.Elements {
	return envelope.Frame(p.Body())
}

// Bytes serializes the reconstructed envelope.
func (p *Plan) Bytes() ([]byte, error) {
	return p.Envelope().Bytes()
}

// Final returns the reveal transaction.
func (p *Plan) Final() *TxSpec {
	if len(p.Txs) == 0 {
		return nil
	}
	return p.Txs[len(p.Txs)-1]
}

// Request describes one inscription to plan.
type Request struct {
	Envelope  *envelope.Envelope
	Reward    uint64 // koinu paid to Recipient by the reveal output
	Recipient []byte // HASH160 of the recipient key
	ChangeTo  []byte // HASH160 of the funding wallet key
	LinkKey   []byte // compressed key that signs chain links
}

func (r *Request) validate(dust uint64) error {
	if r == nil || r.Envelope == nil {
		return fmt.Errorf("%w: envelope", ErrInvalidRequest)
	}
	if len(r.Recipient) != tx.PubKeyHashLen {
		return fmt.Errorf("%w: recipient must be a %d-byte key hash", ErrInvalidRequest, tx.PubKeyHashLen)
	}
	if len(r.ChangeTo) != tx.PubKeyHashLen {
		return fmt.Errorf("%w: change must be a %d-byte key hash", ErrInvalidRequest, tx.PubKeyHashLen)
	}
	if len(r.LinkKey) != tx.CompressedPubKeyLen {
		return fmt.Errorf("%w: link key must be %d bytes", ErrInvalidRequest, tx.CompressedPubKeyLen)
	}
	if r.Reward < dust {
		return fmt.Errorf("%w: reward %d below dust %d", ErrInvalidRequest, r.Reward, dust)
	}
	return nil
}

// Planner lays an envelope out over a chain of transactions and funds each
// one from a Selector.
type Planner struct {
	policy Policy
	logger *zap.Logger
}

// NewPlanner creates a planner. Zero policy fields take their defaults.
func NewPlanner(policy Policy, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{policy: policy.withDefaults(), logger: logger}
}

// Policy returns the effective policy.
func (p *Planner) Policy() Policy {
	return p.policy
}

// ChainLength returns how many transactions env needs. It fails with an
// error matching both envelope.ErrValidation and ErrChainTooLong when that
// exceeds the policy's MaxChainLength, so callers can reject a payload
// before touching the network.
func (p *Planner) ChainLength(env *envelope.Envelope) (int, error) {
	if env == nil {
		return 0, fmt.Errorf("%w: envelope", ErrInvalidRequest)
	}
	batches, err := p.partition(env)
	if err != nil {
		return 0, err
	}
	return len(batches), nil
}

func (p *Planner) partition(env *envelope.Envelope) ([]Batch, error) {
	batches, err := Partition(env.Body, p.policy.MaxPayloadPerTx)
	if err != nil {
		return nil, err
	}
	if limit := p.policy.MaxChainLength; limit > 0 && len(batches) > limit {
		return nil, fmt.Errorf("%w: %w: envelope needs %d transactions, limit is %d",
			envelope.ErrValidation, ErrChainTooLong, len(batches), limit)
	}
	return batches, nil
}

// Plan partitions the envelope, builds the lock for every non-final batch
// and funds each transaction in order. Inputs are reserved in sel as they
// are chosen, and each change output joins the candidate pool so later
// transactions may spend it. sel must not be shared with another job.
func (p *Planner) Plan(req *Request, sel *tx.Selector) (*Plan, error) {
	if sel == nil {
		return nil, fmt.Errorf("%w: selector", ErrInvalidRequest)
	}
	if err := req.validate(p.policy.Dust); err != nil {
		return nil, err
	}
	batches, err := p.partition(req.Envelope)
	if err != nil {
		return nil, err
	}

	changeLock, err := tx.P2PKHLock(req.ChangeTo)
	if err != nil {
		return nil, err
	}
	revealLock, err := tx.InscriptionLock(req.Recipient, batches[len(batches)-1].Elements)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Reward:    req.Reward,
		Recipient: bytes.Clone(req.Recipient),
		LinkKey:   bytes.Clone(req.LinkKey),
	}
	placeholders := make(map[string]int)

	var prev *Anchor
	for i, b := range batches {
		spec := &TxSpec{Index: i, Batch: b, Prev: prev, Reveal: i == len(batches)-1}

		var out *Output
		if spec.Reveal {
			out = &Output{Lock: []byte(*revealLock), Value: req.Reward}
		} else {
			redeem, err := tx.LockScript(req.LinkKey, b.Len())
			if err != nil {
				return nil, fmt.Errorf("chain: tx %d lock: %w", i, err)
			}
			lock, err := tx.P2SHLock(redeem)
			if err != nil {
				return nil, fmt.Errorf("chain: tx %d anchor: %w", i, err)
			}
			spec.Redeem = redeem
			out = &Output{Lock: []byte(*lock), Value: p.policy.Dust}
		}

		if err := p.fund(spec, out, []byte(*changeLock), sel, placeholders); err != nil {
			return nil, fmt.Errorf("chain: tx %d: %w", i, err)
		}
		plan.Txs = append(plan.Txs, spec)
		plan.TotalFee += spec.Fee

		p.logger.Debug("planned chain tx",
			zap.Int("index", i),
			zap.Int("elements", b.Len()),
			zap.Int("batch_bytes", b.Size()),
			zap.Int("inputs", len(spec.Funding)),
			zap.Int("size", spec.Size),
			zap.Uint64("fee", spec.Fee),
			zap.Uint64("change", spec.Change))

		if spec.Redeem != nil {
			prev = &Anchor{Index: i, Redeem: spec.Redeem, Batch: b, Value: out.Value}
		}
	}

	p.logger.Info("planned inscription chain",
		zap.Int("txs", len(plan.Txs)),
		zap.Uint64("total_fee", plan.TotalFee),
		zap.Uint64("reward", plan.Reward))
	return plan, nil
}

// fund picks funding inputs for spec, whose primary output is out. The fee
// depends on the input count, so selection repeats until the count the fee
// assumed is enough.
func (p *Planner) fund(spec *TxSpec, out *Output, changeLock []byte, sel *tx.Selector, placeholders map[string]int) error {
	var (
		fixedIn  []int
		anchorIn uint64
	)
	if spec.Prev != nil {
		unlockLen := spec.Prev.Batch.Size() + tx.SignaturePushSize + envelope.PushSize(len(spec.Prev.Redeem))
		fixedIn = append(fixedIn, tx.InputSize(unlockLen))
		anchorIn = spec.Prev.Value
	}
	outSizes := []int{tx.OutputSize(len(out.Lock)), tx.OutputSize(len(changeLock))}

	sizeFor := func(k int) int {
		in := append([]int(nil), fixedIn...)
		for j := 0; j < k; j++ {
			in = append(in, tx.P2PKHInputSize)
		}
		return tx.TxSize(in, outSizes)
	}
	requiredFor := func(fee uint64) uint64 {
		need := out.Value + fee
		if anchorIn >= need {
			return 0
		}
		return need - anchorIn
	}

	var (
		chosen *tx.Selection
		size   int
		fee    uint64
	)
	for k := 1; ; {
		size = sizeFor(k)
		fee = tx.EstimateFee(size, p.policy.FeeRate)
		s, err := sel.Select(requiredFor(fee), p.policy.MaxInputsPerTx)
		if err != nil {
			return err
		}
		if len(s.Inputs) <= k {
			chosen = s
			break
		}
		k = len(s.Inputs)
	}
	size = sizeFor(len(chosen.Inputs))
	fee = tx.EstimateFee(size, p.policy.FeeRate)

	if err := sel.Reserve(chosen); err != nil {
		return err
	}

	for _, u := range chosen.Inputs {
		owner, ok := placeholders[u.Key()]
		if !ok {
			owner = NoChange
		}
		spec.Funding = append(spec.Funding, &Funding{UTXO: u, ChangeOf: owner})
	}

	change := chosen.Total + anchorIn - out.Value - fee
	spec.Outputs = []*Output{out}
	if change >= p.policy.Dust {
		spec.Outputs = append(spec.Outputs, &Output{Lock: changeLock, Value: change})
		spec.Change = change
		ph := changePlaceholder(spec.Index, change, changeLock)
		placeholders[ph.Key()] = spec.Index
		sel.Add(ph)
	} else {
		fee += change
	}
	spec.Size = size
	spec.Fee = fee
	return nil
}

// changePlaceholder stands in for output 1 of chain transaction index
// until that transaction is signed and its txid known.
func changePlaceholder(index int, value uint64, lock []byte) *tx.UTXO {
	h := chainhash.DoubleHashH([]byte(fmt.Sprintf("doginals-chain-change-%d", index)))
	return &tx.UTXO{
		TxID:         h.CloneBytes(),
		Vout:         1,
		Amount:       value,
		ScriptPubKey: lock,
	}
}
