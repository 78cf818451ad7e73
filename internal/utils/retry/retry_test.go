package retry

import (
	"context"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func zeroBackoff() Backoff {
	return &backoff.ZeroBackOff{}
}

func TestRetry_Success(t *testing.T) {
	require := testutil.Require(t)

	r := New(WithBackoffFactory(zeroBackoff))
	numCalls := 0
	err := r.Retry(context.Background(), func(ctx context.Context) error {
		numCalls += 1
		return nil
	})
	require.NoError(err)
	require.Equal(1, numCalls)
}

func TestRetry_PermanentError(t *testing.T) {
	require := testutil.Require(t)

	r := New(WithBackoffFactory(zeroBackoff))
	numCalls := 0
	err := r.Retry(context.Background(), func(ctx context.Context) error {
		numCalls += 1
		return xerrors.New("object not found")
	})
	require.Error(err)
	require.Equal(1, numCalls)
}

func TestRetry_RetryableError(t *testing.T) {
	require := testutil.Require(t)

	r := New(WithBackoffFactory(zeroBackoff))
	numCalls := 0
	err := r.Retry(context.Background(), func(ctx context.Context) error {
		numCalls += 1
		if numCalls < DefaultMaxAttempts {
			return Retryable(xerrors.New("bad gateway"))
		}
		return nil
	})
	require.NoError(err)
	require.Equal(DefaultMaxAttempts, numCalls)
}

func TestRetry_MaxAttempts(t *testing.T) {
	require := testutil.Require(t)

	r := New(WithBackoffFactory(zeroBackoff), WithMaxAttempts(2))
	numCalls := 0
	err := r.Retry(context.Background(), func(ctx context.Context) error {
		numCalls += 1
		return xerrors.Errorf("wrapped: %w", Retryable(xerrors.New("bad gateway")))
	})
	require.Error(err)
	require.True(IsRetryable(err))
	require.Equal(2, numCalls)
}

func TestRetry_SingleAttempt(t *testing.T) {
	require := testutil.Require(t)

	r := New(WithBackoffFactory(zeroBackoff), WithMaxAttempts(1))
	numCalls := 0
	err := r.Retry(context.Background(), func(ctx context.Context) error {
		numCalls += 1
		return RateLimit(xerrors.New("too many requests"))
	})
	require.Error(err)
	require.Equal(1, numCalls)
}

func TestDo(t *testing.T) {
	require := testutil.Require(t)

	r := New(WithBackoffFactory(zeroBackoff))
	numCalls := 0
	balance, err := Do(context.Background(), r, func(ctx context.Context) (uint64, error) {
		numCalls += 1
		if numCalls == 1 {
			return 0, Retryable(xerrors.New("timeout"))
		}
		return 42, nil
	})
	require.NoError(err)
	require.Equal(uint64(42), balance)
	require.Equal(2, numCalls)
}
