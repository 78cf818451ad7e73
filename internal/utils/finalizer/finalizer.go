package finalizer

import (
	"io"
)

type (
	// Finalizer guarantees that a resource is closed exactly once and
	// that the close error is surfaced when nothing failed before it.
	Finalizer struct {
		close  CloseFn
		closed bool
	}

	CloseFn func() error
)

func WithClose(close CloseFn) *Finalizer {
	return &Finalizer{close: close}
}

func WithCloser(closer io.Closer) *Finalizer {
	return WithClose(closer.Close)
}

// Finalize is meant for the defer statement; the error is dropped.
func (f *Finalizer) Finalize() {
	_ = f.Close()
}

// Close is meant for the happy path at the end of the function.
func (f *Finalizer) Close() error {
	if f.closed {
		return nil
	}

	f.closed = true
	return f.close()
}
