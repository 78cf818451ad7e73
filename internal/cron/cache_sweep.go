package cron

import (
	"context"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
)

type (
	CacheSweepParams struct {
		fx.In
		fxparams.Params
		Cache *cache.Cache
	}

	// cacheSweepTask drops expired entries that no view reads anymore.
	// Entries that are read again are refreshed by the cache itself.
	cacheSweepTask struct {
		config  *config.Config
		logger  *zap.Logger
		cache   *cache.Cache
		swept   tally.Counter
		entries tally.Gauge
	}
)

func NewCacheSweep(params CacheSweepParams) (Task, error) {
	scope := params.Metrics.SubScope("cache_sweep")
	return &cacheSweepTask{
		config:  params.Config,
		logger:  log.WithPackage(params.Logger),
		cache:   params.Cache,
		swept:   scope.Counter("swept"),
		entries: scope.Gauge("entries"),
	}, nil
}

func (t *cacheSweepTask) Name() string {
	return "cache_sweep"
}

func (t *cacheSweepTask) Spec() string {
	return every(t.config.Cron.CacheSweepInterval)
}

func (t *cacheSweepTask) Parallelism() int64 {
	return 1
}

func (t *cacheSweepTask) Enabled() bool {
	return t.config.Cron.CacheSweepInterval > 0
}

func (t *cacheSweepTask) DelayStartDuration() time.Duration {
	return 0
}

func (t *cacheSweepTask) Run(ctx context.Context) error {
	swept := t.cache.Sweep()
	remaining := t.cache.Len()
	t.swept.Inc(int64(swept))
	t.entries.Update(float64(remaining))

	if swept > 0 {
		log.WithSpan(ctx, t.logger).Debug(
			"swept expired cache entries",
			zap.Int("swept", swept),
			zap.Int("remaining", remaining),
		)
	}

	return nil
}
