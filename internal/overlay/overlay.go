// Package overlay keeps locally issued writes visible until the ledger confirms or rejects them.
package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/timesource"
)

type (
	Status int

	// Invalidator refreshes the views built on a set of cache keys.
	Invalidator interface {
		// Invalidate drops the cached ledger data so that the views are re-projected from the ledger.
		Invalidate(keys ...string)
		// Reproject re-projects the views from the cached data. Only the overlay changed.
		Reproject(keys ...string)
	}

	// SubmitFn sends the write to the ledger and returns the id the ledger assigned to the entity.
	SubmitFn func(ctx context.Context) (string, error)

	Mutation[T any] struct {
		Kind string
		// Entity is the provisional value spliced into views until the ledger settles.
		Entity T
		// Key identifies the entity in a projection before confirmation, if known upfront.
		// When empty, the confirmed id is used.
		Key        string
		Submit     SubmitFn
		Invalidate []string
	}

	// Record is a snapshot of a tracked mutation.
	Record[T any] struct {
		LocalID     string
		Kind        string
		Entity      T
		Status      Status
		ConfirmedID string
		CreatedAt   time.Time
		Err         error
	}

	Params struct {
		fx.In
		fxparams.Params
		Lifecycle   fx.Lifecycle
		Invalidator Invalidator
		TimeSource  timesource.TimeSource `optional:"true"`
	}

	// Overlay tracks the pending writes of one entity kind.
	Overlay[T any] struct {
		name            string
		key             func(T) string
		invalidator     Invalidator
		timeSource      timesource.TimeSource
		maxMissedCycles int
		logger          *zap.Logger
		metrics         *overlayMetrics

		ctx    context.Context
		cancel context.CancelFunc
		wg     sync.WaitGroup

		mu      sync.Mutex
		entries []*entry[T]
	}

	// Handle follows one mutation until it settles.
	Handle[T any] struct {
		entry *entry[T]
		mu    *sync.Mutex
	}

	entry[T any] struct {
		mutation  Mutation[T]
		localID   string
		createdAt time.Time
		cancel    context.CancelFunc
		done      chan struct{}

		// Guarded by the overlay mutex.
		status      Status
		confirmedID string
		err         error
		missed      int
	}

	overlayMetrics struct {
		applied   tally.Counter
		confirmed tally.Counter
		failed    tally.Counter
		expired   tally.Counter
		pending   tally.Gauge
	}
)

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// New creates the overlay of one entity kind. key returns the ledger identity of a projected entity.
func New[T any](params Params, name string, key func(T) string) *Overlay[T] {
	o := newOverlay(&params.Config.Overlay, name, key, params.Invalidator, params.Logger, params.Metrics, params.TimeSource)
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			o.Close()
			return nil
		},
	})
	return o
}

func newOverlay[T any](
	cfg *config.OverlayConfig,
	name string,
	key func(T) string,
	invalidator Invalidator,
	logger *zap.Logger,
	scope tally.Scope,
	ts timesource.TimeSource,
) *Overlay[T] {
	if ts == nil {
		ts = timesource.NewRealTimeSource()
	}

	scope = scope.SubScope("overlay").Tagged(map[string]string{"kind": name})
	ctx, cancel := context.WithCancel(context.Background())
	return &Overlay[T]{
		name:            name,
		key:             key,
		invalidator:     invalidator,
		timeSource:      ts,
		maxMissedCycles: cfg.MaxMissedCycles,
		logger:          log.WithPackage(logger).With(zap.String("kind", name)),
		metrics: &overlayMetrics{
			applied:   scope.Counter("applied"),
			confirmed: scope.Counter("confirmed"),
			failed:    scope.Counter("failed"),
			expired:   scope.Counter("expired"),
			pending:   scope.Gauge("pending"),
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Apply inserts the provisional entity and submits the mutation in the background.
// The entity is visible through Splice as soon as Apply returns.
func (o *Overlay[T]) Apply(ctx context.Context, mutation Mutation[T]) *Handle[T] {
	submitCtx, cancel := context.WithCancel(o.ctx)
	e := &entry[T]{
		mutation:  mutation,
		localID:   uuid.NewString(),
		createdAt: o.timeSource.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	o.mu.Lock()
	o.entries = append(o.entries, e)
	o.updatePendingLocked()
	o.mu.Unlock()
	o.metrics.applied.Inc(1)

	logger := log.WithSpan(ctx, o.logger).With(zap.String("local_id", e.localID))
	logger.Debug("applied mutation", zap.String("mutation", mutation.Kind))
	o.reproject(e)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()

		confirmedID, err := mutation.Submit(submitCtx)
		if err != nil {
			o.fail(e, client.ClassifyError(err), logger)
			return
		}

		o.confirm(e, confirmedID, logger)
	}()

	return &Handle[T]{entry: e, mu: &o.mu}
}

func (o *Overlay[T]) confirm(e *entry[T], confirmedID string, logger *zap.Logger) {
	o.mu.Lock()
	if e.status != StatusPending {
		o.mu.Unlock()
		return
	}

	e.status = StatusConfirmed
	e.confirmedID = confirmedID
	e.missed = 0
	if e.keyLocked() == "" {
		// No projection can match it; the invalidated views show the ledger copy.
		o.removeLocked(e)
	}
	o.updatePendingLocked()
	o.mu.Unlock()

	o.metrics.confirmed.Inc(1)
	logger.Debug("mutation confirmed", zap.String("confirmed_id", confirmedID))

	// Waiters observe the invalidated views.
	if len(e.mutation.Invalidate) > 0 {
		o.invalidator.Invalidate(e.mutation.Invalidate...)
	}
	close(e.done)
}

func (o *Overlay[T]) fail(e *entry[T], err error, logger *zap.Logger) {
	o.mu.Lock()
	if e.status != StatusPending {
		o.mu.Unlock()
		return
	}

	e.status = StatusFailed
	e.err = err
	o.removeLocked(e)
	o.mu.Unlock()

	o.metrics.failed.Inc(1)
	logger.Warn("mutation failed", zap.Error(err))

	// Waiters observe the rolled back views.
	o.reproject(e)
	close(e.done)
}

// reproject refreshes the views showing the entity after it was inserted or rolled back.
func (o *Overlay[T]) reproject(e *entry[T]) {
	if len(e.mutation.Invalidate) > 0 {
		o.invalidator.Reproject(e.mutation.Invalidate...)
	}
}

// Splice returns the projected view followed by the provisional entities it does not contain yet.
// The input is not modified.
func (o *Overlay[T]) Splice(view []T) []T {
	seen := make(map[string]struct{}, len(view))
	for _, item := range view {
		seen[o.key(item)] = struct{}{}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	result := make([]T, len(view), len(view)+len(o.entries))
	copy(result, view)

	for _, e := range o.entries {
		if key := e.keyLocked(); key != "" {
			if _, ok := seen[key]; ok {
				continue
			}
		}
		result = append(result, e.mutation.Entity)
	}

	return result
}

// Reconcile is called with every fresh projection. Entities the projection
// contains are settled. Every other entity counts one missed cycle; once the
// limit is exceeded a pending mutation is cancelled and failed with
// client.ErrReconciliationTimeout, and a confirmed one is dropped.
func (o *Overlay[T]) Reconcile(projected []T) {
	o.ReconcileWhere(projected, nil)
}

// ReconcileWhere reconciles a projection that only covers the entities accepted by in,
// e.g. the messages of one viewer. Entities outside of it are left untouched.
// A nil filter accepts every entity.
func (o *Overlay[T]) ReconcileWhere(projected []T, in func(T) bool) {
	seen := make(map[string]struct{}, len(projected))
	for _, item := range projected {
		seen[o.key(item)] = struct{}{}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	kept := o.entries[:0]
	for _, e := range o.entries {
		if in != nil && !in(e.mutation.Entity) {
			kept = append(kept, e)
			continue
		}

		if key := e.keyLocked(); key != "" {
			if _, ok := seen[key]; ok {
				if e.status == StatusPending {
					// Observed before the submission returned.
					e.status = StatusConfirmed
					e.confirmedID = key
					close(e.done)
					o.metrics.confirmed.Inc(1)
				}
				continue
			}
		}

		e.missed++
		if e.missed <= o.maxMissedCycles {
			kept = append(kept, e)
			continue
		}

		o.metrics.expired.Inc(1)
		switch e.status {
		case StatusPending:
			e.cancel()
			e.status = StatusFailed
			e.err = client.ClassifyError(xerrors.Errorf("mutation %v not observed after %d cycles: %w", e.localID, e.missed-1, client.ErrReconciliationTimeout))
			close(e.done)
			o.metrics.failed.Inc(1)
			o.logger.Warn("mutation timed out", zap.String("local_id", e.localID), zap.Error(e.err))
		case StatusConfirmed:
			o.logger.Debug("dropping unobserved confirmed mutation", zap.String("local_id", e.localID))
		}
	}

	// Release the references held past the new length.
	for i := len(kept); i < len(o.entries); i++ {
		o.entries[i] = nil
	}
	o.entries = kept
	o.updatePendingLocked()
}

// Pending lists the tracked mutations in the order they were applied.
func (o *Overlay[T]) Pending() []*Record[T] {
	o.mu.Lock()
	defer o.mu.Unlock()

	records := make([]*Record[T], len(o.entries))
	for i, e := range o.entries {
		records[i] = e.recordLocked()
	}

	return records
}

// Close cancels the submissions still in flight and waits for them to return.
func (o *Overlay[T]) Close() {
	o.cancel()
	o.wg.Wait()
}

func (o *Overlay[T]) removeLocked(target *entry[T]) {
	for i, e := range o.entries {
		if e == target {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			break
		}
	}
	o.updatePendingLocked()
}

func (o *Overlay[T]) updatePendingLocked() {
	o.metrics.pending.Update(float64(len(o.entries)))
}

func (e *entry[T]) keyLocked() string {
	if e.mutation.Key != "" {
		return e.mutation.Key
	}

	return e.confirmedID
}

func (e *entry[T]) recordLocked() *Record[T] {
	return &Record[T]{
		LocalID:     e.localID,
		Kind:        e.mutation.Kind,
		Entity:      e.mutation.Entity,
		Status:      e.status,
		ConfirmedID: e.confirmedID,
		CreatedAt:   e.createdAt,
		Err:         e.err,
	}
}

func (h *Handle[T]) LocalID() string {
	return h.entry.localID
}

// Done is closed once the mutation is confirmed or failed.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.entry.done
}

// Wait blocks until the mutation settles and returns its error.
func (h *Handle[T]) Wait(ctx context.Context) error {
	select {
	case <-h.entry.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the classified error of a failed mutation. It is nil until Done is closed.
func (h *Handle[T]) Err() error {
	select {
	case <-h.entry.done:
		return h.entry.err
	default:
		return nil
	}
}

// Record returns a snapshot of the mutation.
func (h *Handle[T]) Record() *Record[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entry.recordLocked()
}
