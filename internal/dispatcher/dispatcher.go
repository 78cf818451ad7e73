// Package dispatcher keeps watched views fresh. Two producers feed one signal loop:
// the push path forwards subscription events that concern a view, and the poll
// path ticks every view on its own interval. Every signal invalidates the cache
// keys of the view and re-projects it.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/subscription"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/timesource"
)

type (
	Source int

	// Invalidator drops cache keys.
	Invalidator interface {
		Invalidate(keys ...string)
	}

	Params struct {
		fx.In
		fxparams.Params
		Lifecycle  fx.Lifecycle
		Cache      *cache.Cache
		Subscriber subscription.Subscriber `optional:"true"`
		TimeSource timesource.TimeSource   `optional:"true"`
	}

	Dispatcher struct {
		config      *config.DispatcherConfig
		invalidator Invalidator
		subscriber  subscription.Subscriber
		timeSource  timesource.TimeSource
		logger      *zap.Logger
		scope       tally.Scope
		metrics     *dispatcherMetrics
		cron        *cron.Cron
		signals     chan signal
		nextID      atomic.Uint64
		started     atomic.Bool
		closed      atomic.Bool

		ctx    context.Context
		cancel context.CancelFunc
		wg     sync.WaitGroup

		mu     sync.Mutex
		views  map[uint64]watcher
		topics map[string]*topic
	}

	// watcher is the type-erased side of a View.
	watcher interface {
		id() uint64
		name() string
		keys() []string
		eventTypes() []string
		concerns(e *event.RawEvent) bool
		refresh(source Source)
	}

	// topic is one shared subscription, reference counted across the views of its event type.
	topic struct {
		eventType string
		sub       subscription.Subscription
		views     map[uint64]watcher
	}

	signal struct {
		keys   []string
		view   watcher
		source Source
		// release is called once the signal has been handled.
		release func()
	}

	dispatcherMetrics struct {
		signals      tally.Scope
		dropped      tally.Counter
		skipped      tally.Counter
		subscribed   tally.Counter
		unsubscribed tally.Counter
		disconnected tally.Counter
		subscribeErr tally.Counter
		views        tally.Gauge
		topics       tally.Gauge
	}
)

const (
	SourceInitial Source = iota
	SourcePush
	SourcePoll
	SourceInvalidate
	SourceManual
	SourceReproject
)

func (s Source) String() string {
	switch s {
	case SourceInitial:
		return "initial"
	case SourcePush:
		return "push"
	case SourcePoll:
		return "poll"
	case SourceInvalidate:
		return "invalidate"
	case SourceManual:
		return "manual"
	case SourceReproject:
		return "reproject"
	default:
		return "unknown"
	}
}

func New(params Params) *Dispatcher {
	d := newDispatcher(&params.Config.Dispatcher, params.Cache, params.Subscriber, params.Logger, params.Metrics, params.TimeSource)
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			d.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Close()
			return nil
		},
	})
	return d
}

func newDispatcher(
	cfg *config.DispatcherConfig,
	invalidator Invalidator,
	subscriber subscription.Subscriber,
	logger *zap.Logger,
	scope tally.Scope,
	ts timesource.TimeSource,
) *Dispatcher {
	if ts == nil {
		ts = timesource.NewRealTimeSource()
	}

	buffer := cfg.SignalBuffer
	if buffer <= 0 {
		buffer = 1
	}

	scope = scope.SubScope("dispatcher")
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		config:      cfg,
		invalidator: invalidator,
		subscriber:  subscriber,
		timeSource:  ts,
		logger:      log.WithPackage(logger),
		scope:       scope,
		metrics: &dispatcherMetrics{
			signals:      scope.SubScope("signal"),
			dropped:      scope.Counter("signal_dropped"),
			skipped:      scope.Counter("poll_skipped"),
			subscribed:   scope.Counter("subscribed"),
			unsubscribed: scope.Counter("unsubscribed"),
			disconnected: scope.Counter("disconnected"),
			subscribeErr: scope.Counter("subscribe_error"),
			views:        scope.Gauge("views"),
			topics:       scope.Gauge("topics"),
		},
		cron:    cron.New(),
		signals: make(chan signal, buffer),
		ctx:     ctx,
		cancel:  cancel,
		views:   make(map[uint64]watcher),
		topics:  make(map[string]*topic),
	}
}

// Start runs the signal loop and the poll scheduler. It is idempotent.
func (d *Dispatcher) Start() {
	if !d.started.CompareAndSwap(false, true) {
		return
	}

	d.logger.Info(
		"starting dispatcher",
		zap.Bool("push_enabled", d.config.PushEnabled),
		zap.Bool("poll_enabled", d.config.PollEnabled),
	)
	d.cron.Start()

	d.wg.Add(1)
	go d.loop()
}

// Close tears down every view and subscription. It is idempotent.
func (d *Dispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.logger.Info("stopping dispatcher")
	d.cancel()
	<-d.cron.Stop().Done()

	d.mu.Lock()
	topics := d.topics
	d.topics = make(map[string]*topic)
	d.views = make(map[uint64]watcher)
	d.mu.Unlock()

	for _, t := range topics {
		d.closeTopic(t)
	}

	d.wg.Wait()
}

// Invalidate drops the cache keys and re-projects every view that depends on one of them.
// The keys are dropped before Invalidate returns; the views refresh in the background.
func (d *Dispatcher) Invalidate(keys ...string) {
	if len(keys) == 0 {
		return
	}

	d.invalidator.Invalidate(keys...)
	d.emit(signal{keys: keys, source: SourceInvalidate})
}

// Reproject re-projects every view that depends on one of the keys without dropping them,
// so a view picks up local changes layered over the cached data.
func (d *Dispatcher) Reproject(keys ...string) {
	if len(keys) == 0 {
		return
	}

	d.emit(signal{keys: keys, source: SourceReproject})
}

// Subscriptions reports the event types with a live subscription and the number of views sharing each.
func (d *Dispatcher) Subscriptions() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make(map[string]int, len(d.topics))
	for eventType, t := range d.topics {
		if t.sub != nil {
			result[eventType] = len(t.views)
		}
	}

	return result
}

// NumViews returns the number of registered views.
func (d *Dispatcher) NumViews() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.views)
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case sig := <-d.signals:
			d.handle(sig)
		}
	}
}

func (d *Dispatcher) handle(sig signal) {
	d.metrics.signals.Tagged(map[string]string{"source": sig.source.String()}).Counter("handled").Inc(1)

	if len(sig.keys) > 0 && sig.source != SourceInvalidate && sig.source != SourceReproject {
		d.invalidator.Invalidate(sig.keys...)
	}

	var targets []watcher
	if sig.view != nil {
		targets = []watcher{sig.view}
	} else {
		targets = d.viewsWithKeys(sig.keys)
	}

	if len(targets) == 0 {
		if sig.release != nil {
			sig.release()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(targets))
	d.wg.Add(len(targets))
	for _, target := range targets {
		target := target
		go func() {
			defer d.wg.Done()
			defer wg.Done()
			target.refresh(sig.source)
		}()
	}

	if sig.release != nil {
		go func() {
			wg.Wait()
			sig.release()
		}()
	}
}

// emit enqueues a signal without blocking. A full buffer drops the signal;
// the next poll tick covers it.
func (d *Dispatcher) emit(sig signal) bool {
	if d.ctx.Err() != nil {
		if sig.release != nil {
			sig.release()
		}
		return false
	}

	select {
	case d.signals <- sig:
		return true
	default:
		d.metrics.dropped.Inc(1)
		fields := []zap.Field{zap.String("source", sig.source.String())}
		if sig.view != nil {
			fields = append(fields, zap.String("view", sig.view.name()))
		}
		d.logger.Warn("signal buffer full, dropping signal", fields...)
		if sig.release != nil {
			sig.release()
		}
		return false
	}
}

func (d *Dispatcher) viewsWithKeys(keys []string) []watcher {
	wanted := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		wanted[key] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var result []watcher
	for _, w := range d.views {
		for _, key := range w.keys() {
			if _, ok := wanted[key]; ok {
				result = append(result, w)
				break
			}
		}
	}

	return result
}

func (d *Dispatcher) register(w watcher, interval time.Duration, poll func()) (cron.EntryID, error) {
	d.mu.Lock()
	d.views[w.id()] = w
	d.metrics.views.Update(float64(len(d.views)))
	d.mu.Unlock()

	if d.config.PushEnabled {
		d.subscribe(w)
	}

	if !d.config.PollEnabled || interval <= 0 {
		return 0, nil
	}

	return d.cron.AddFunc("@every "+interval.String(), poll)
}

func (d *Dispatcher) unregister(w watcher, entryID cron.EntryID) {
	if entryID != 0 {
		d.cron.Remove(entryID)
	}

	var released []*topic
	d.mu.Lock()
	delete(d.views, w.id())
	d.metrics.views.Update(float64(len(d.views)))
	for _, eventType := range w.eventTypes() {
		t, ok := d.topics[eventType]
		if !ok {
			continue
		}

		delete(t.views, w.id())
		if len(t.views) == 0 {
			delete(d.topics, eventType)
			released = append(released, t)
		}
	}
	d.metrics.topics.Update(float64(len(d.topics)))
	d.mu.Unlock()

	for _, t := range released {
		d.closeTopic(t)
	}
}

// subscribe attaches the view to the shared subscription of each of its event types,
// opening the ones that are missing or were dropped.
func (d *Dispatcher) subscribe(w watcher) {
	if d.subscriber == nil {
		return
	}

	for _, eventType := range w.eventTypes() {
		d.mu.Lock()
		if d.ctx.Err() != nil {
			d.mu.Unlock()
			return
		}

		t, ok := d.topics[eventType]
		if !ok {
			t = &topic{eventType: eventType, views: make(map[uint64]watcher)}
			d.topics[eventType] = t
			d.metrics.topics.Update(float64(len(d.topics)))
		}
		t.views[w.id()] = w
		live := t.sub != nil
		d.mu.Unlock()

		if live {
			continue
		}

		sub, err := d.subscriber.Subscribe(d.ctx, eventType)
		if err != nil {
			d.metrics.subscribeErr.Inc(1)
			d.logger.Warn("failed to subscribe", zap.String("event_type", eventType), zap.Error(err))
			continue
		}

		d.mu.Lock()
		current, ok := d.topics[eventType]
		if !ok || current != t || t.sub != nil || d.ctx.Err() != nil {
			// Released or subscribed concurrently.
			d.mu.Unlock()
			_ = sub.Close()
			continue
		}
		t.sub = sub
		d.mu.Unlock()

		d.metrics.subscribed.Inc(1)
		d.logger.Info("subscribed", zap.String("event_type", eventType))

		d.wg.Add(1)
		go d.pump(t, sub)
	}
}

// pump forwards the events of one subscription to the views they concern.
func (d *Dispatcher) pump(t *topic, sub subscription.Subscription) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				d.dropped(t, sub)
				return
			}
			d.offer(t, e)
		case <-sub.Done():
			d.dropped(t, sub)
			return
		}
	}
}

func (d *Dispatcher) offer(t *topic, e *event.RawEvent) {
	d.mu.Lock()
	targets := make([]watcher, 0, len(t.views))
	for _, w := range t.views {
		if w.concerns(e) {
			targets = append(targets, w)
		}
	}
	d.mu.Unlock()

	for _, w := range targets {
		d.emit(signal{keys: w.keys(), view: w, source: SourcePush})
	}
}

func (d *Dispatcher) dropped(t *topic, sub subscription.Subscription) {
	d.mu.Lock()
	if t.sub != sub {
		// Released by the dispatcher.
		d.mu.Unlock()
		return
	}
	t.sub = nil
	d.mu.Unlock()

	if d.ctx.Err() != nil {
		return
	}

	d.metrics.disconnected.Inc(1)
	d.logger.Warn("subscription dropped", zap.String("event_type", t.eventType), zap.Error(sub.Err()))
}

func (d *Dispatcher) closeTopic(t *topic) {
	d.mu.Lock()
	sub := t.sub
	t.sub = nil
	d.mu.Unlock()

	if sub == nil {
		return
	}

	if err := sub.Close(); err != nil {
		d.logger.Warn("failed to close subscription", zap.String("event_type", t.eventType), zap.Error(err))
	}
	d.metrics.unsubscribed.Inc(1)
}
