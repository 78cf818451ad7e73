package cache

import (
	"context"
	"sync"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/timesource"
)

type (
	// Producer computes the value of a key on a miss.
	Producer func(ctx context.Context) (any, error)

	// Entry is logically absent once now - StoredAt > TTL.
	Entry struct {
		Key      string
		Data     any
		StoredAt time.Time
		TTL      time.Duration
	}

	Params struct {
		fx.In
		fxparams.Params
		Lifecycle  fx.Lifecycle
		TimeSource timesource.TimeSource `optional:"true"`
	}

	// Cache is a key/value store with a fixed expiry per entry.
	// There is no eviction policy beyond expiry: expired entries are dropped on read or by Sweep.
	Cache struct {
		logger       *zap.Logger
		timeSource   timesource.TimeSource
		defaultTTL   time.Duration
		singleFlight bool
		group        singleflight.Group
		metrics      *cacheMetrics

		mu      sync.Mutex
		entries map[string]*Entry
		// epochs is bumped on every invalidation of a key; clearEpoch on every Clear.
		epochs     map[string]uint64
		clearEpoch uint64
	}

	cacheMetrics struct {
		hit         tally.Counter
		miss        tally.Counter
		evicted     tally.Counter
		invalidated tally.Counter
		discarded   tally.Counter
		size        tally.Gauge
	}

	epoch struct {
		key   uint64
		clear uint64
	}
)

func New(params Params) *Cache {
	c := newCache(&params.Config.Cache, params.Logger, params.Metrics, params.TimeSource)
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			c.Clear()
			return nil
		},
	})
	return c
}

func newCache(cfg *config.CacheConfig, logger *zap.Logger, scope tally.Scope, timeSource timesource.TimeSource) *Cache {
	if timeSource == nil {
		timeSource = timesource.NewRealTimeSource()
	}

	scope = scope.SubScope("cache")
	return &Cache{
		logger:       log.WithPackage(logger),
		timeSource:   timeSource,
		defaultTTL:   cfg.DefaultTTL,
		singleFlight: cfg.SingleFlight,
		metrics: &cacheMetrics{
			hit:         scope.Counter("hit"),
			miss:        scope.Counter("miss"),
			evicted:     scope.Counter("evicted"),
			invalidated: scope.Counter("invalidated"),
			discarded:   scope.Counter("discarded"),
			size:        scope.Gauge("size"),
		},
		entries: make(map[string]*Entry),
		epochs:  make(map[string]uint64),
	}
}

// Set stores the data under key, overwriting any previous entry. A ttl <= 0 uses the default TTL.
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLocked(key, data, ttl)
}

func (c *Cache) setLocked(key string, data any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.entries[key] = &Entry{
		Key:      key,
		Data:     data,
		StoredAt: c.timeSource.Now(),
		TTL:      ttl,
	}
	c.metrics.size.Update(float64(len(c.entries)))
}

// Get returns the data of a live entry. An expired entry is removed and reported as absent.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.metrics.miss.Inc(1)
		return nil, false
	}

	if c.expired(entry, c.timeSource.Now()) {
		delete(c.entries, key)
		c.metrics.evicted.Inc(1)
		c.metrics.miss.Inc(1)
		c.metrics.size.Update(float64(len(c.entries)))
		return nil, false
	}

	c.metrics.hit.Inc(1)
	return entry.Data, true
}

// Invalidate removes the keys immediately.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
		c.epochs[key]++
	}
	c.metrics.invalidated.Inc(int64(len(keys)))
	c.metrics.size.Update(float64(len(c.entries)))
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.epochs = make(map[string]uint64)
	c.clearEpoch++
	c.metrics.size.Update(0)
}

// Sweep drops the entries that already expired and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.timeSource.Now()
	dropped := 0
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			dropped++
		}
	}

	c.metrics.evicted.Inc(int64(dropped))
	c.metrics.size.Update(float64(len(c.entries)))
	return dropped
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// GetOrFetch returns the cached data, or runs the producer and stores its result under ttl.
// Producer errors are returned and nothing is stored. A result whose key was invalidated
// while the producer ran is returned but not stored.
//
// With single-flight, the producer is shared by every caller of the key and does not
// observe their cancellation: a cancelled caller returns its context error while the
// others keep waiting for the result.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, producer Producer) (any, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}

	if !c.singleFlight {
		return c.fetch(ctx, key, ttl, producer)
	}

	shared := context.WithoutCancel(ctx)
	results := c.group.DoChan(key, func() (any, error) {
		return c.fetch(shared, key, ttl, producer)
	})

	select {
	case result := <-results:
		if result.Shared {
			c.logger.Debug("shared in-flight fetch", zap.String("key", key))
		}
		return result.Val, result.Err
	case <-ctx.Done():
		return nil, xerrors.Errorf("stopped waiting for %v: %w", key, ctx.Err())
	}
}

func (c *Cache) fetch(ctx context.Context, key string, ttl time.Duration, producer Producer) (any, error) {
	before := c.epoch(key)

	data, err := producer(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to produce %v: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epochLocked(key) != before {
		c.metrics.discarded.Inc(1)
		c.logger.Debug("discarded result of invalidated key", zap.String("key", key))
		return data, nil
	}

	c.setLocked(key, data, ttl)
	return data, nil
}

func (c *Cache) epoch(key string) epoch {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.epochLocked(key)
}

func (c *Cache) epochLocked(key string) epoch {
	return epoch{key: c.epochs[key], clear: c.clearEpoch}
}

func (c *Cache) expired(entry *Entry, now time.Time) bool {
	return now.Sub(entry.StoredAt) > entry.TTL
}

// Fetch is the typed form of GetOrFetch.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, producer func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	data, err := c.GetOrFetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return producer(ctx)
	})
	if err != nil {
		return zero, err
	}

	value, ok := data.(T)
	if !ok {
		return zero, xerrors.Errorf("unexpected type %T under %v", data, key)
	}

	return value, nil
}
