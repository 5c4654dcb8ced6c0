package classifier

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/framegrade/framegrade/internal/batch"
	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/logger"
)

// RetryConfig bounds retries of transient classifier failures
type RetryConfig struct {
	MaxRetries   int           // retries after the first attempt
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap for any single delay
	Multiplier   float64       // growth factor between retries
}

// DefaultRetryConfig returns the retry policy used when nothing is configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryFunc is called before each retry with the 1-based retry number,
// the delay about to be slept and the failure being retried.
type RetryFunc func(retry int, delay time.Duration, err error)

// Retrying wraps an Oracle with a per-call timeout and bounded retries of
// transient failures.
type Retrying struct {
	next        Oracle
	config      RetryConfig
	callTimeout time.Duration
	onRetry     RetryFunc
}

// RetryOption configures a Retrying oracle
type RetryOption func(*Retrying)

// WithCallTimeout limits each individual Classify attempt. Zero disables it.
func WithCallTimeout(d time.Duration) RetryOption {
	return func(r *Retrying) { r.callTimeout = d }
}

// WithOnRetry registers fn to observe retries
func WithOnRetry(fn RetryFunc) RetryOption {
	return func(r *Retrying) { r.onRetry = fn }
}

// NewRetrying wraps next. Negative retry counts are treated as zero and a
// multiplier below 1 is treated as 1.
func NewRetrying(next Oracle, config RetryConfig, opts ...RetryOption) *Retrying {
	config.MaxRetries = max(0, config.MaxRetries)
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = config.InitialDelay
	}
	r := &Retrying{next: next, config: config}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify calls the wrapped oracle, retrying transient failures. Every
// failure it returns is an OracleError, except cancellation of ctx which is
// reported as a cancellation error.
func (r *Retrying) Classify(ctx context.Context, b *batch.Batch) ([]ClassOutput, error) {
	attempts := 0
	for {
		attempts++
		outputs, err := r.attempt(ctx, b)
		if err == nil {
			return outputs, nil
		}

		if ctx.Err() != nil {
			return nil, cancellationError(ctx, b)
		}

		transient := IsTransient(err)
		if !transient {
			if errors.IsCategory(err, errors.CategoryClassifier) {
				return nil, err
			}
			return nil, NewOracleError(err, b)
		}
		if attempts > r.config.MaxRetries {
			return nil, errors.New(fmt.Errorf("classifier failed after %d attempts: %w", attempts, err)).
				Component("classifier").
				Category(errors.CategoryClassifier).
				Context("attempts", attempts).
				Context("batch_seq", b.Seq).
				Context("batch_len", b.Len()).
				Build()
		}

		delay := calculateBackoffDelay(r.config, attempts-1)
		GetLogger().Debug("retrying classifier call",
			logger.Int("batch_seq", b.Seq),
			logger.Int("retry", attempts),
			logger.Duration("delay", delay),
			logger.Error(err))
		if r.onRetry != nil {
			r.onRetry(attempts, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, cancellationError(ctx, b)
		case <-timer.C:
		}
	}
}

func (r *Retrying) attempt(ctx context.Context, b *batch.Batch) ([]ClassOutput, error) {
	if r.callTimeout <= 0 {
		return r.next.Classify(ctx, b)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	outputs, err := r.next.Classify(callCtx, b)
	if err != nil && ctx.Err() == nil && callCtx.Err() == context.DeadlineExceeded {
		return nil, errors.New(fmt.Errorf("classifier call timed out after %s: %w", r.callTimeout, err)).
			Component("classifier").
			Category(errors.CategoryTimeout).
			Context("batch_seq", b.Seq).
			Build()
	}
	return outputs, err
}

// IsTransient reports whether a classifier failure is worth retrying:
// timeouts, errors marked for retry, and errors whose Temporary method
// returns true.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsCategory(err, errors.CategoryTimeout) || errors.IsCategory(err, errors.CategoryRetry) {
		return true
	}
	var temp interface{ Temporary() bool }
	return errors.As(err, &temp) && temp.Temporary()
}

func cancellationError(ctx context.Context, b *batch.Batch) error {
	return errors.New(fmt.Errorf("classification cancelled: %w", ctx.Err())).
		Component("classifier").
		Category(errors.CategoryCancellation).
		Context("batch_seq", b.Seq).
		Build()
}

// calculateBackoffDelay returns InitialDelay × Multiplier^retry with ±10%
// jitter, capped at MaxDelay.
func calculateBackoffDelay(config RetryConfig, retry int) time.Duration {
	backoff := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(retry))

	jitterFactor := 0.9 + 0.2*float64(time.Now().Nanosecond())/1e9
	backoff *= jitterFactor

	if backoff > float64(config.MaxDelay) {
		backoff = float64(config.MaxDelay)
	}
	return time.Duration(backoff)
}
