// Package inscribe runs an inscription job end to end: it validates and
// encodes the payload, prices the reward, plans and signs the transaction
// chain against a fresh UTXO snapshot and broadcasts it in order while
// journaling progress.
package inscribe

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/chain"
	"github.com/bitfsorg/doginals-go/envelope"
	"github.com/bitfsorg/doginals-go/journal"
	"github.com/bitfsorg/doginals-go/network"
	"github.com/bitfsorg/doginals-go/retry"
	"github.com/bitfsorg/doginals-go/reward"
	"github.com/bitfsorg/doginals-go/storage"
	"github.com/bitfsorg/doginals-go/tx"
	"github.com/bitfsorg/doginals-go/wallet"
)

// DefaultContentType is used when a request leaves the content type empty.
const DefaultContentType = "image/png"

// Deps are the collaborators of a Service. Wallet, Source and Quoter are
// required; Journal and Payloads are optional.
type Deps struct {
	Wallet   *wallet.Wallet
	Account  uint32
	Source   network.FundingSource
	Executor retry.Executor
	Quoter   *reward.Quoter
	Journal  *journal.Store
	Payloads storage.Store

	Policy         chain.Policy
	ChunkSize      int
	BroadcastDelay time.Duration
	FeeBuffer      uint64
}

// Service runs inscription jobs one at a time against a single funding
// wallet.
type Service struct {
	mu     sync.Mutex // held for the whole of a job
	closed atomic.Bool

	source   network.FundingSource
	exec     retry.Executor
	quoter   *reward.Quoter
	journal  *journal.Store
	payloads storage.Store

	network *wallet.NetworkConfig
	key     *wallet.KeyPair
	address string

	codec     *envelope.Codec
	planner   *chain.Planner
	builder   *chain.Builder
	delay     time.Duration
	feeBuffer uint64

	logger *zap.Logger
}

// New wires a Service from deps.
func New(deps Deps, logger *zap.Logger) (*Service, error) {
	switch {
	case deps.Wallet == nil:
		return nil, fmt.Errorf("%w: wallet", ErrMissingDependency)
	case deps.Source == nil:
		return nil, fmt.Errorf("%w: funding source", ErrMissingDependency)
	case deps.Quoter == nil:
		return nil, fmt.Errorf("%w: quoter", ErrMissingDependency)
	}
	if err := deps.Policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Executor == nil {
		deps.Executor = retry.Direct{}
	}
	if deps.FeeBuffer == 0 {
		deps.FeeBuffer = tx.DefaultFeeBuffer
	}

	key, err := deps.Wallet.FundingKey(deps.Account)
	if err != nil {
		return nil, fmt.Errorf("inscribe: derive funding key: %w", err)
	}
	address, err := deps.Wallet.Network().PubKeyAddress(key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("inscribe: funding address: %w", err)
	}

	return &Service{
		source:    deps.Source,
		exec:      deps.Executor,
		quoter:    deps.Quoter,
		journal:   deps.Journal,
		payloads:  deps.Payloads,
		network:   deps.Wallet.Network(),
		key:       key,
		address:   address,
		codec:     envelope.NewCodec(deps.ChunkSize),
		planner:   chain.NewPlanner(deps.Policy, logger.Named("planner")),
		builder:   chain.NewBuilder(logger.Named("builder")),
		delay:     deps.BroadcastDelay,
		feeBuffer: deps.FeeBuffer,
		logger:    logger,
	}, nil
}

// FundingAddress returns the address whose UTXOs fund every job.
func (s *Service) FundingAddress() string {
	return s.address
}

// Quoter returns the reward quoter.
func (s *Service) Quoter() *reward.Quoter {
	return s.quoter
}

// Codec returns the envelope codec.
func (s *Service) Codec() *envelope.Codec {
	return s.codec
}

// Request is one inscription to create.
type Request struct {
	Payload     []byte
	ContentType string
	Recipient   string  // P2PKH address receiving the reveal output
	RewardFiat  float64 // zero uses the quoter's target
}

// Result describes a finished, or partially finished, job.
type Result struct {
	JobID         string         `json:"job_id,omitempty"`
	Status        journal.Status `json:"status"`
	InscriptionID string         `json:"inscription_id,omitempty"`
	FinalTxID     string         `json:"final_txid,omitempty"`
	TxIDs         []string       `json:"txids"`
	Broadcast     []string       `json:"broadcast"`
	Reward        reward.Quote   `json:"reward"`
	TotalFee      uint64         `json:"total_fee"`
	PayloadHash   string         `json:"payload_hash"`
	Warning       string         `json:"warning,omitempty"`
}

// Inscribe runs one job. Jobs are serialized. The Result is returned
// alongside the error whenever a job record exists, so callers can report
// which transactions reached the network before a failure.
//
// Cancelling ctx stops the job only until the first transaction is
// accepted; after that the chain is broadcast to the end.
func (s *Service) Inscribe(ctx context.Context, req Request) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return nil, ErrClosed
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = DefaultContentType
	}

	check := s.codec.ValidateSize(req.Payload)
	if !check.Valid {
		s.logger.Warn("payload rejected", zap.Int("size", check.Size), zap.String("reason", check.Reason))
		return nil, fmt.Errorf("%w: %s", envelope.ErrValidation, check.Reason)
	}
	recipient, err := s.network.DecodeAddress(strings.TrimSpace(req.Recipient))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidRecipient, req.Recipient, err)
	}
	env, err := s.codec.Build(req.Payload, contentType)
	if err != nil {
		s.logger.Warn("payload encoding failed", zap.Error(err))
		return nil, err
	}
	links, err := s.planner.ChainLength(env)
	if err != nil {
		s.logger.Warn("payload rejected", zap.Int("size", check.Size), zap.Error(err))
		return nil, err
	}

	fiat := req.RewardFiat
	if fiat <= 0 {
		fiat = s.quoter.Config().TargetFiat
	}
	quote := s.quoter.QuoteReward(ctx, fiat)

	res := &Result{
		Status:      journal.StatusPlanned,
		Reward:      quote,
		PayloadHash: storage.KeyHex(req.Payload),
		Warning:     check.Warning,
	}
	if s.payloads != nil {
		if _, err := s.payloads.Put(req.Payload); err != nil {
			return nil, fmt.Errorf("inscribe: store payload: %w", err)
		}
	}

	job := &journal.Job{
		Network:     s.network.Name,
		Recipient:   req.Recipient,
		RewardKoinu: quote.Koinu,
		PayloadHash: res.PayloadHash,
		PayloadSize: len(req.Payload),
		ContentType: contentType,
	}
	if err := s.putJob(job); err != nil {
		return nil, err
	}
	res.JobID = job.ID
	log := s.logger.With(zap.String("job", job.ID))
	log.Info("inscription job started",
		zap.Int("payload_size", len(req.Payload)),
		zap.Int("txs", links),
		zap.String("content_type", contentType),
		zap.String("recipient", req.Recipient),
		zap.String("reward", quote.Display()))

	signed, plan, err := s.prepare(ctx, env, recipient, quote.Koinu, log)
	if err != nil {
		return res, s.fail(job, res, err)
	}

	res.TotalFee = plan.TotalFee
	for _, st := range signed {
		res.TxIDs = append(res.TxIDs, st.TxID)
		job.RawTxs = append(job.RawTxs, st.Hex())
	}
	job.TxIDs = res.TxIDs
	job.FeeKoinu = plan.TotalFee
	if err := s.putJob(job); err != nil {
		return res, err
	}

	return s.broadcast(ctx, job, res, signed, log)
}

// Resume broadcasts the rest of a journaled chain that stopped part way,
// for example after the node refused a transaction with
// too-long-mempool-chain and earlier links have since confirmed. The
// transactions are the ones signed when the job was planned.
func (s *Service) Resume(ctx context.Context, id string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if s.journal == nil {
		return nil, fmt.Errorf("%w: %s", journal.ErrJobNotFound, id)
	}

	job, err := s.journal.Resume(id)
	if err != nil {
		return nil, err
	}
	res := &Result{
		JobID:       job.ID,
		Status:      job.Status,
		TxIDs:       job.TxIDs,
		Broadcast:   append([]string(nil), job.Broadcast...),
		Reward:      reward.Quote{Koinu: job.RewardKoinu, Native: float64(job.RewardKoinu) / tx.KoinuPerCoin},
		TotalFee:    job.FeeKoinu,
		PayloadHash: job.PayloadHash,
	}
	log := s.logger.With(zap.String("job", job.ID))

	txids, raws := job.Pending()
	offset := len(job.Broadcast)
	signed := make([]*chain.SignedTx, len(raws))
	for i, h := range raws {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return res, s.fail(job, res, fmt.Errorf("inscribe: journaled tx %d: %w", offset+i, err))
		}
		signed[i] = &chain.SignedTx{Index: offset + i, TxID: txids[i], Raw: raw}
	}
	log.Info("resuming inscription job", zap.Int("broadcast", offset), zap.Int("remaining", len(signed)))

	if len(signed) == 0 {
		return s.complete(job, res, job.TxIDs[len(job.TxIDs)-1], log), nil
	}
	return s.broadcast(ctx, job, res, signed, log)
}

// broadcast submits signed in order, journaling each accepted transaction,
// and closes the job.
func (s *Service) broadcast(ctx context.Context, job *journal.Job, res *Result, signed []*chain.SignedTx, log *zap.Logger) (*Result, error) {
	b := chain.NewBroadcaster(s.source, s.exec, s.delay, log.Named("broadcast"))
	b.OnBroadcast = func(index int, txid string) {
		res.Broadcast = append(res.Broadcast, txid)
		res.Status = journal.StatusBroadcasting
		if s.journal == nil {
			return
		}
		if err := s.journal.RecordBroadcast(job.ID, index, txid); err != nil {
			log.Error("journal broadcast record failed", zap.Int("index", index), zap.Error(err))
		}
	}

	final, err := b.BroadcastChain(ctx, signed)
	if err != nil {
		var be *chain.BroadcastError
		if errors.As(err, &be) {
			log.Error("chain broadcast failed",
				zap.Int("index", be.Index),
				zap.String("txid", be.TxID),
				zap.Strings("broadcast", be.Broadcast),
				zap.Error(be.Err))
		}
		return res, s.fail(job, res, err)
	}
	return s.complete(job, res, final, log), nil
}

func (s *Service) complete(job *journal.Job, res *Result, final string, log *zap.Logger) *Result {
	res.FinalTxID = final
	res.InscriptionID = envelope.InscriptionID(final)
	res.Status = journal.StatusCompleted
	s.finishJob(job, res.InscriptionID, nil)
	log.Info("inscription completed",
		zap.String("inscription_id", res.InscriptionID),
		zap.Int("txs", len(res.TxIDs)),
		zap.Uint64("total_fee", res.TotalFee))
	return res
}

// Close waits for the running job, if any, to finish. Later calls to
// Inscribe and Resume fail with ErrClosed, so the journal can be closed
// safely once Close returns.
func (s *Service) Close() {
	s.closed.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
}

// prepare snapshots the wallet's UTXOs, plans the chain and signs it.
func (s *Service) prepare(ctx context.Context, env *envelope.Envelope, recipient []byte, rewardKoinu uint64, log *zap.Logger) ([]*chain.SignedTx, *chain.Plan, error) {
	utxos, err := s.fundingUTXOs(ctx)
	if err != nil {
		return nil, nil, err
	}
	sel := tx.NewSelector(utxos, s.feeBuffer)
	log.Debug("funding snapshot", zap.Int("utxos", len(utxos)), zap.Uint64("available", sel.Available()))

	plan, err := s.planner.Plan(&chain.Request{
		Envelope:  env,
		Reward:    rewardKoinu,
		Recipient: recipient,
		ChangeTo:  s.key.PubKeyHash(),
		LinkKey:   s.key.PublicKey.Compressed(),
	}, sel)
	if err != nil {
		var ife *tx.InsufficientFundsError
		if errors.As(err, &ife) {
			log.Error("insufficient funds",
				zap.Uint64("required", ife.Required),
				zap.Uint64("available", ife.Available),
				zap.Uint64("shortfall", ife.Shortfall()),
				zap.Int("max_inputs", ife.MaxInputs))
		}
		return nil, nil, err
	}
	if err := s.checkFunding(ctx, plan); err != nil {
		log.Error("funding snapshot is stale", zap.Error(err))
		return nil, nil, err
	}

	signed, err := s.builder.Build(plan, s.key.PrivateKey)
	if err != nil {
		log.Error("chain signing failed", zap.Error(err))
		return nil, nil, err
	}
	return signed, plan, nil
}

// fundingUTXOs lists the wallet's UTXOs through the executor.
func (s *Service) fundingUTXOs(ctx context.Context) ([]*tx.UTXO, error) {
	var raw []*network.UTXO
	err := s.exec.Do(ctx, "listunspent", func(ctx context.Context) error {
		var err error
		raw, err = s.source.ListUnspent(ctx, s.address)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFunding, err)
	}

	utxos := make([]*tx.UTXO, 0, len(raw))
	for _, u := range raw {
		utxo, err := tx.NewUTXOFromHex(u.TxID, u.Vout, u.Amount, u.ScriptPubKey, u.Address)
		if err != nil {
			s.logger.Warn("skipping malformed utxo", zap.String("txid", u.TxID), zap.Uint32("vout", u.Vout), zap.Error(err))
			continue
		}
		utxos = append(utxos, utxo)
	}
	return utxos, nil
}

// checkFunding confirms that every wallet UTXO the plan spends is still
// unspent, when the source can tell.
func (s *Service) checkFunding(ctx context.Context, plan *chain.Plan) error {
	checker, ok := s.source.(network.OutputChecker)
	if !ok {
		return nil
	}
	for _, spec := range plan.Txs {
		for _, f := range spec.Funding {
			if f.ChangeOf != chain.NoChange {
				continue
			}
			txid, vout := f.UTXO.TxIDHex(), f.UTXO.Vout
			err := s.exec.Do(ctx, "gettxout", func(ctx context.Context) error {
				_, err := checker.GetUTXO(ctx, txid, vout)
				if errors.Is(err, network.ErrTxNotFound) {
					return retry.Permanent(err)
				}
				return err
			})
			if err != nil {
				return fmt.Errorf("%w: output %s:%d: %w", ErrFunding, txid, vout, err)
			}
		}
	}
	return nil
}

func (s *Service) fail(job *journal.Job, res *Result, cause error) error {
	res.Status = journal.StatusFailed
	if len(res.Broadcast) > 0 {
		res.Status = journal.StatusPartial
	}
	s.finishJob(job, "", cause)
	return cause
}

func (s *Service) putJob(job *journal.Job) error {
	if s.journal == nil {
		return nil
	}
	if err := s.journal.Put(job); err != nil {
		return fmt.Errorf("inscribe: journal: %w", err)
	}
	return nil
}

func (s *Service) finishJob(job *journal.Job, inscriptionID string, cause error) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Finish(job.ID, inscriptionID, cause); err != nil {
		s.logger.Error("journal finish failed", zap.String("job", job.ID), zap.Error(err))
	}
}

// Job returns a journaled job.
func (s *Service) Job(id string) (*journal.Job, error) {
	if s.journal == nil {
		return nil, fmt.Errorf("%w: %s", journal.ErrJobNotFound, id)
	}
	return s.journal.Get(id)
}

// Jobs returns up to limit journaled jobs, newest first.
func (s *Service) Jobs(limit int) ([]*journal.Job, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.List(limit)
}
