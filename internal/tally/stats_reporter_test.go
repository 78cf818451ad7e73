package tally

import (
	"testing"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testapp"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestNewStatsReporter_NoStatsD(t *testing.T) {
	testapp.TestAllEnvs(t, func(t *testing.T, cfg *config.Config) {
		require := testutil.Require(t)

		cfg.StatsD = nil
		var reporter tally.StatsReporter
		app := testapp.New(
			t,
			testapp.WithConfig(cfg),
			fx.Provide(NewStatsReporter),
			fx.Populate(&reporter),
		)
		defer app.Close()

		require.Equal(tally.NullStatsReporter, reporter)
		require.False(reporter.Capabilities().Reporting())
	})
}

func TestNewStatsReporter_WithStatsD(t *testing.T) {
	testapp.TestAllEnvs(t, func(t *testing.T, cfg *config.Config) {
		require := testutil.Require(t)

		cfg.StatsD = &config.StatsDConfig{
			Address: "localhost:8125",
			Prefix:  "discoveer",
		}
		var reporter tally.StatsReporter
		app := testapp.New(
			t,
			testapp.WithConfig(cfg),
			fx.Provide(NewStatsReporter),
			fx.Populate(&reporter),
		)
		defer app.Close()

		require.NotEqual(tally.NullStatsReporter, reporter)
		require.True(reporter.Capabilities().Reporting())
		require.True(reporter.Capabilities().Tagging())

		reporter.ReportCounter("cache.hit", map[string]string{"namespace": "messages"}, 1)
		reporter.ReportHistogramDurationSamples("dispatcher.delivery", nil, nil, 0, time.Second, 1)
	})
}

func TestNewRootScope(t *testing.T) {
	require := testutil.Require(t)

	var scope tally.Scope
	app := fxtest.New(
		t,
		config.Module,
		fx.NopLogger,
		fx.Provide(func() *zap.Logger { return zaptest.NewLogger(t) }),
		Module,
		fx.Populate(&scope),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(scope)
	scope.Counter("started").Inc(1)
}
