package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/network"
	"github.com/bitfsorg/doginals-go/retry"
)

// DefaultBroadcastDelay is the pause between consecutive submissions.
const DefaultBroadcastDelay = 2 * time.Second

// Submitter accepts raw transactions for relay.
type Submitter interface {
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)
}

// Broadcaster submits a signed chain strictly in order.
type Broadcaster struct {
	source Submitter
	exec   retry.Executor
	delay  time.Duration
	logger *zap.Logger

	// OnBroadcast, if set, is called after each accepted submission.
	OnBroadcast func(index int, txid string)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewBroadcaster creates a broadcaster. A nil exec submits each
// transaction once; a negative delay disables the pause.
func NewBroadcaster(source Submitter, exec retry.Executor, delay time.Duration, logger *zap.Logger) *Broadcaster {
	if exec == nil {
		exec = retry.Direct{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay == 0 {
		delay = DefaultBroadcastDelay
	}
	return &Broadcaster{
		source: source,
		exec:   exec,
		delay:  delay,
		logger: logger,
		sleep:  sleepContext,
	}
}

// BroadcastChain submits signed in order, waiting the configured delay
// between submissions, and returns the txid of the last transaction. On
// the first failure it stops and returns a *BroadcastError; nothing after
// the failed transaction is submitted.
//
// ctx only governs the first submission. Once the node accepts it the rest
// of the chain is submitted under a context that ignores cancellation, so a
// chain is never abandoned half way; the executor's per-attempt timeout
// still bounds every call.
func (b *Broadcaster) BroadcastChain(ctx context.Context, signed []*SignedTx) (string, error) {
	if len(signed) == 0 {
		return "", fmt.Errorf("%w: nothing to broadcast", ErrInvalidRequest)
	}
	done := make([]string, 0, len(signed))
	fail := func(s *SignedTx, err error) (string, error) {
		b.logger.Error("chain broadcast aborted",
			zap.Int("index", s.Index),
			zap.String("txid", s.TxID),
			zap.Int("broadcast", len(done)),
			zap.Int("total", len(signed)),
			zap.Error(err))
		return "", &BroadcastError{Index: s.Index, TxID: s.TxID, Broadcast: done, Err: err}
	}

	for i, s := range signed {
		if i > 0 && b.delay > 0 {
			if err := b.sleep(ctx, b.delay); err != nil {
				return fail(s, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return fail(s, err)
		}

		err := b.exec.Do(ctx, "broadcast", func(ctx context.Context) error {
			return b.submit(ctx, s)
		})
		if err != nil {
			return fail(s, err)
		}

		if len(done) == 0 {
			ctx = context.WithoutCancel(ctx)
		}
		done = append(done, s.TxID)
		b.logger.Info("broadcast chain tx",
			zap.Int("index", s.Index), zap.Int("total", len(signed)), zap.String("txid", s.TxID))
		if b.OnBroadcast != nil {
			b.OnBroadcast(s.Index, s.TxID)
		}
	}
	return done[len(done)-1], nil
}

func (b *Broadcaster) submit(ctx context.Context, s *SignedTx) error {
	txid, err := b.source.BroadcastTx(ctx, s.Hex())
	if err != nil {
		// A resubmission after a lost response lands here once the first
		// copy is mined.
		if network.RPCErrorCode(err) == network.RPCVerifyAlreadyInMain {
			return nil
		}
		if errors.Is(err, network.ErrBroadcastRejected) {
			return retry.Permanent(err)
		}
		return err
	}
	if txid != s.TxID {
		return retry.Permanent(fmt.Errorf("%w: node returned txid %s, expected %s",
			network.ErrInvalidResponse, txid, s.TxID))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
