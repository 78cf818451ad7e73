package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type (
	// Retry runs an operation until it succeeds, fails permanently or runs out of attempts.
	// Only RetryableError and RateLimitError are retried; everything else is permanent.
	Retry interface {
		Retry(ctx context.Context, operation OperationFn) error
	}

	OperationFn func(ctx context.Context) error

	Backoff        backoff.BackOff
	BackoffFactory func() Backoff

	Option func(r *retryImpl)

	retryImpl struct {
		maxAttempts    int
		backoffFactory BackoffFactory
		logger         *zap.Logger
	}
)

const (
	DefaultMaxAttempts = 3

	defaultInitialInterval     = 250 * time.Millisecond
	defaultRandomizationFactor = 0.5
	defaultMultiplier          = 2
	defaultMaxInterval         = 10 * time.Second
	defaultMaxElapsedTime      = 2 * time.Minute
	rateLimitPenalty           = time.Second
)

func New(opts ...Option) Retry {
	r := &retryImpl{
		maxAttempts:    DefaultMaxAttempts,
		backoffFactory: defaultBackoffFactory,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do retries an operation producing a value and returns the value of the last attempt.
func Do[T any](ctx context.Context, r Retry, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Retry(ctx, func(ctx context.Context) error {
		res, err := operation(ctx)
		if err != nil {
			return err
		}

		result = res
		return nil
	})
	return result, err
}

// WithMaxAttempts sets the maximum number of attempts.
// A value of 1 disables retries; values below 1 fall back to the default.
func WithMaxAttempts(maxAttempts int) Option {
	return func(r *retryImpl) {
		if maxAttempts < 1 {
			maxAttempts = DefaultMaxAttempts
		}
		r.maxAttempts = maxAttempts
	}
}

func WithBackoffFactory(backoffFactory BackoffFactory) Option {
	return func(r *retryImpl) {
		r.backoffFactory = backoffFactory
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *retryImpl) {
		r.logger = logger
	}
}

func (r *retryImpl) Retry(ctx context.Context, operation OperationFn) error {
	policy := backoff.WithContext(r.backoffFactory(), ctx)

	attempts := 0
	attempt := func() error {
		err := operation(ctx)
		attempts += 1
		if err == nil {
			return nil
		}

		logger := r.logger.With(zap.Int("attempts", attempts), zap.Error(err))
		if !IsRetryable(err) {
			logger.Debug("permanent error")
			return backoff.Permanent(err)
		}

		if attempts >= r.maxAttempts {
			logger.Warn("max attempts exceeded")
			return backoff.Permanent(err)
		}

		logger.Warn("retryable error")
		return err
	}

	notify := func(err error, duration time.Duration) {
		var rateLimitErr *RateLimitError
		if !xerrors.As(err, &rateLimitErr) {
			return
		}

		select {
		case <-policy.Context().Done():
		case <-time.After(rateLimitPenalty):
		}
	}

	return backoff.RetryNotify(attempt, policy, notify)
}

func defaultBackoffFactory() Backoff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     defaultInitialInterval,
		RandomizationFactor: defaultRandomizationFactor,
		Multiplier:          defaultMultiplier,
		MaxInterval:         defaultMaxInterval,
		MaxElapsedTime:      defaultMaxElapsedTime,
		Clock:               backoff.SystemClock,
	}
}
