package retry

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type (
	// RetryableError marks a transient failure, e.g. a 5xx from a fullnode.
	RetryableError struct {
		Err error
	}

	// RateLimitError marks a throttled request; retries wait an extra second.
	RateLimitError struct {
		Err error
	}
)

var (
	_ errors.Wrapper = (*RetryableError)(nil)
	_ errors.Wrapper = (*RateLimitError)(nil)
)

func Retryable(err error) error {
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("RetryableError: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func RateLimit(err error) error {
	return &RateLimitError{Err: err}
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("RateLimitError: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err, or anything it wraps, asks for a retry.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	var rateLimitErr *RateLimitError
	return errors.As(err, &retryableErr) || errors.As(err, &rateLimitErr)
}
