package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/robfig/cron/v3"
	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
)

type (
	// Spec describes a watched view.
	Spec[T any] struct {
		Name string
		// Keys are the cache keys the view is projected from.
		Keys         []string
		PollInterval time.Duration
		// EventTypes are the fully qualified event types that may change the view.
		EventTypes []string
		// Concerns filters pushed events. Nil accepts every event.
		Concerns func(e *event.RawEvent) bool
		Load     func(ctx context.Context) (T, error)
		// OnChange, if set, is called after every completed refresh.
		OnChange func(snapshot Snapshot[T])
	}

	// Snapshot is what a UI binds to. A failed refresh keeps the last good data.
	Snapshot[T any] struct {
		Data      T
		IsLoading bool
		Err       error
		UpdatedAt time.Time
	}

	View[T any] struct {
		dispatcher *Dispatcher
		viewID     uint64
		spec       Spec[T]
		logger     *zap.Logger
		ctx        context.Context
		cancel     context.CancelFunc
		entryID    cron.EntryID
		polling    *semaphore.Weighted
		generation atomic.Uint64
		closed     atomic.Bool
		metrics    *viewMetrics

		mu       sync.Mutex
		snapshot Snapshot[T]
		latency  ewma.MovingAverage
		loading  int
	}

	viewMetrics struct {
		refreshed tally.Counter
		failed    tally.Counter
		discarded tally.Counter
		latency   tally.Gauge
	}
)

// ErrClosed is returned by Refresh on a closed view.
var ErrClosed = xerrors.New("view is closed")

// Watch registers a view and starts its initial load.
func Watch[T any](d *Dispatcher, spec Spec[T]) (*View[T], error) {
	if spec.Name == "" {
		return nil, xerrors.New("view name is required")
	}
	if spec.Load == nil {
		return nil, xerrors.Errorf("view %v has no loader", spec.Name)
	}
	if d.ctx.Err() != nil {
		return nil, xerrors.Errorf("failed to watch %v: %w", spec.Name, ErrClosed)
	}

	scope := d.scope.SubScope("view").Tagged(map[string]string{"view": spec.Name})
	ctx, cancel := context.WithCancel(d.ctx)
	v := &View[T]{
		dispatcher: d,
		viewID:     d.nextID.Inc(),
		spec:       spec,
		logger:     d.logger.With(zap.String("view", spec.Name)),
		ctx:        ctx,
		cancel:     cancel,
		polling:    semaphore.NewWeighted(1),
		metrics: &viewMetrics{
			refreshed: scope.Counter("refreshed"),
			failed:    scope.Counter("refresh_failed"),
			discarded: scope.Counter("refresh_discarded"),
			latency:   scope.Gauge("refresh_latency_ms"),
		},
		latency: ewma.NewMovingAverage(),
	}
	v.snapshot.IsLoading = true

	entryID, err := d.register(v, spec.PollInterval, v.poll)
	if err != nil {
		d.unregister(v, 0)
		cancel()
		return nil, xerrors.Errorf("failed to schedule %v: %w", spec.Name, err)
	}
	v.entryID = entryID

	d.emit(signal{keys: spec.Keys, view: v, source: SourceInitial})
	return v, nil
}

// Snapshot returns the current state of the view.
func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

// Refresh invalidates the keys of the view, re-projects it and waits for the result.
func (v *View[T]) Refresh(ctx context.Context) error {
	if v.closed.Load() {
		return ErrClosed
	}

	if len(v.spec.Keys) > 0 {
		v.dispatcher.invalidator.Invalidate(v.spec.Keys...)
	}

	refreshCtx, cancel := context.WithCancel(v.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return v.load(refreshCtx, SourceManual)
}

// LatencyMillis is the moving average of the refresh latency.
func (v *View[T]) LatencyMillis() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latency.Value()
}

// Close stops the view. A refresh completing after Close is discarded.
func (v *View[T]) Close() {
	if !v.closed.CompareAndSwap(false, true) {
		return
	}

	v.dispatcher.unregister(v, v.entryID)
	v.cancel()
}

func (v *View[T]) id() uint64 {
	return v.viewID
}

func (v *View[T]) name() string {
	return v.spec.Name
}

func (v *View[T]) keys() []string {
	return v.spec.Keys
}

func (v *View[T]) eventTypes() []string {
	return v.spec.EventTypes
}

func (v *View[T]) concerns(e *event.RawEvent) bool {
	if v.spec.Concerns == nil {
		return true
	}
	return v.spec.Concerns(e)
}

func (v *View[T]) refresh(source Source) {
	_ = v.load(v.ctx, source)
}

// poll runs on the cron scheduler. A tick is skipped while the previous one is in flight.
func (v *View[T]) poll() {
	if v.closed.Load() {
		return
	}

	if !v.polling.TryAcquire(1) {
		v.dispatcher.metrics.skipped.Inc(1)
		v.logger.Debug("skipped poll")
		return
	}

	d := v.dispatcher
	if d.config.PushEnabled {
		// Re-attempts the subscriptions that failed or dropped.
		d.subscribe(v)
	}

	d.emit(signal{
		keys:    v.spec.Keys,
		view:    v,
		source:  SourcePoll,
		release: func() { v.polling.Release(1) },
	})
}

// load re-projects the view. The result is discarded when the view was closed
// or a newer load started in the meantime.
func (v *View[T]) load(ctx context.Context, source Source) error {
	generation := v.generation.Inc()
	start := time.Now()

	v.mu.Lock()
	v.loading++
	v.snapshot.IsLoading = true
	v.mu.Unlock()

	data, err := v.spec.Load(ctx)
	elapsed := time.Since(start)

	v.mu.Lock()
	v.loading--
	if v.closed.Load() || v.ctx.Err() != nil || generation != v.generation.Load() {
		v.snapshot.IsLoading = v.loading > 0
		v.mu.Unlock()
		v.metrics.discarded.Inc(1)
		v.logger.Debug("discarded stale refresh", zap.String("source", source.String()))
		if v.closed.Load() {
			return ErrClosed
		}
		return err
	}

	v.snapshot.IsLoading = v.loading > 0
	v.latency.Add(float64(elapsed) / float64(time.Millisecond))
	v.metrics.latency.Update(v.latency.Value())
	if err != nil {
		v.snapshot.Err = err
	} else {
		v.snapshot.Data = data
		v.snapshot.Err = nil
		v.snapshot.UpdatedAt = v.dispatcher.timeSource.Now()
	}
	snapshot := v.snapshot
	v.mu.Unlock()

	if err != nil {
		v.metrics.failed.Inc(1)
		v.logger.Warn("failed to refresh view", zap.String("source", source.String()), zap.Error(err))
	} else {
		v.metrics.refreshed.Inc(1)
	}

	if v.spec.OnChange != nil {
		v.spec.OnChange(snapshot)
	}

	return err
}
