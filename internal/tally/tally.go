package tally

import (
	"context"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/consts"
)

type (
	MetricParams struct {
		fx.In
		Lifecycle fx.Lifecycle
		Config    *config.Config
		Reporter  tally.StatsReporter
	}
)

const scopeReportInterval = time.Second

var Module = fx.Options(
	fx.Provide(NewStatsReporter),
	fx.Provide(NewRootScope),
)

func NewRootScope(params MetricParams) tally.Scope {
	opts := tally.ScopeOptions{
		Prefix:    consts.ServiceName,
		Reporter:  params.Reporter,
		Tags:      params.Config.GetCommonTags(),
		Separator: ".",
	}
	scope, closer := tally.NewRootScope(opts, scopeReportInterval)
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return closer.Close()
		},
	})

	return scope
}
