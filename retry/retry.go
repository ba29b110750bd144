// Package retry runs external calls with exponential backoff, a per-attempt
// timeout and a per-operation circuit breaker.
package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

var (
	// ErrCircuitOpen is returned without calling the operation while its
	// breaker is open.
	ErrCircuitOpen = errors.New("retry: circuit open")

	// ErrPermanent marks an error that must not be retried.
	ErrPermanent = errors.New("retry: permanent failure")

	// ErrExhausted wraps the last error once every attempt has failed.
	ErrExhausted = errors.New("retry: attempts exhausted")
)

// Executor runs fn under a retry policy. name identifies the operation for
// logging and circuit breaking.
type Executor interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string        { return e.err.Error() }
func (e *permanentError) Unwrap() error        { return e.err }
func (e *permanentError) Is(target error) bool { return target == ErrPermanent }

// Permanent marks err as non-retryable. errors.Is still matches err's chain.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Policy configures a Retrier.
type Policy struct {
	MaxAttempts      int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay     time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier       float64       `mapstructure:"multiplier" yaml:"multiplier"`
	Jitter           bool          `mapstructure:"jitter" yaml:"jitter"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	BreakerThreshold int           `mapstructure:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerReset     time.Duration `mapstructure:"breaker_reset" yaml:"breaker_reset"`
}

// DefaultPolicy returns 3 attempts, 1s-30s exponential backoff, a 30s
// per-attempt timeout, and a breaker that opens after 5 consecutive
// failures for 60s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		InitialDelay:     time.Second,
		MaxDelay:         30 * time.Second,
		Multiplier:       2,
		Jitter:           true,
		Timeout:          30 * time.Second,
		BreakerThreshold: 5,
		BreakerReset:     60 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.BreakerReset <= 0 {
		p.BreakerReset = d.BreakerReset
	}
	return p
}

// Retrier is the default Executor.
type Retrier struct {
	policy Policy
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*breaker

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Executor = (*Retrier)(nil)

// New returns a Retrier. Zero attempt and delay fields take DefaultPolicy
// values; a zero Timeout or BreakerThreshold disables that feature.
func New(policy Policy, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		policy:   policy.withDefaults(),
		logger:   logger,
		breakers: make(map[string]*breaker),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Policy returns the effective policy.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs fn until it succeeds, returns a permanent error, the context ends,
// or MaxAttempts is reached.
func (r *Retrier) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	br := r.breaker(name)
	b := &backoff.Backoff{
		Min:    r.policy.InitialDelay,
		Max:    r.policy.MaxDelay,
		Factor: r.policy.Multiplier,
		Jitter: r.policy.Jitter,
	}

	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := br.allow(r.now()); err != nil {
			r.logger.Warn("circuit open, skipping call",
				zap.String("op", name),
				zap.Int("attempt", attempt),
			)
			if lastErr != nil {
				return fmt.Errorf("%w: %s: %w", err, name, lastErr)
			}
			return fmt.Errorf("%w: %s", err, name)
		}

		lastErr = r.attempt(ctx, fn)
		if lastErr == nil {
			br.success()
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		br.failure(r.now())

		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", name, lastErr)
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := b.Duration()
		r.logger.Warn("call failed, retrying",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", name, lastErr)
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrExhausted, name, r.policy.MaxAttempts, lastErr)
}

func (r *Retrier) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.policy.Timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	return fn(actx)
}

func (r *Retrier) breaker(name string) *breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	br, ok := r.breakers[name]
	if !ok {
		br = &breaker{threshold: r.policy.BreakerThreshold, reset: r.policy.BreakerReset}
		r.breakers[name] = br
	}
	return br
}

// BreakerState returns the breaker state for name.
func (r *Retrier) BreakerState(name string) State {
	return r.breaker(name).current(r.now())
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

// Direct calls fn exactly once.
type Direct struct{}

var _ Executor = Direct{}

// Do implements Executor.
func (Direct) Do(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
