package syncgroup

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type (
	Group interface {
		Go(fn func() error)
		Wait() error
	}

	Option func(group *groupImpl)

	groupImpl struct {
		group *errgroup.Group
		ctx   context.Context
		sem   *semaphore.Weighted
		err   error
	}
)

func New(ctx context.Context, opts ...Option) (Group, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	group := &groupImpl{
		group: g,
		ctx:   ctx,
	}
	for _, opt := range opts {
		opt(group)
	}

	return group, ctx
}

// WithThrottling bounds the number of workers running at the same time.
func WithThrottling(limit int) Option {
	return func(group *groupImpl) {
		if limit > 0 {
			group.sem = semaphore.NewWeighted(int64(limit))
		}
	}
}

func (g *groupImpl) Go(fn func() error) {
	if g.sem == nil {
		g.group.Go(fn)
		return
	}

	// Acquire fails once a worker has failed and the group context is cancelled.
	if err := g.sem.Acquire(g.ctx, 1); err != nil {
		if g.err == nil {
			g.err = err
		}
		return
	}

	g.group.Go(func() error {
		defer g.sem.Release(1)
		return fn()
	})
}

func (g *groupImpl) Wait() error {
	if err := g.group.Wait(); err != nil {
		return err
	}

	return g.err
}

// Map applies fn to every input concurrently and returns the outputs in input order.
func Map[In any, Out any](ctx context.Context, inputs []In, parallelism int, fn func(ctx context.Context, input In) (Out, error)) ([]Out, error) {
	outputs := make([]Out, len(inputs))
	group, ctx := New(ctx, WithThrottling(parallelism))
	for i := range inputs {
		i := i
		group.Go(func() error {
			output, err := fn(ctx, inputs[i])
			if err != nil {
				return err
			}

			outputs[i] = output
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return outputs, nil
}
