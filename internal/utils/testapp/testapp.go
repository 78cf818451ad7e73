package testapp

import (
	"fmt"
	"testing"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/services"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

type (
	TestApp interface {
		Close()
		Logger() *zap.Logger
		Config() *config.Config
	}

	TestFn func(t *testing.T, cfg *config.Config)

	TestConfig struct {
		Namespace   string
		ConfigNames []string
	}

	testAppImpl struct {
		app    *fxtest.App
		logger *zap.Logger
		config *config.Config
	}
)

var (
	TestConfigs = []TestConfig{
		{
			Namespace: config.DefaultNamespace,
			ConfigNames: []string{
				"sui-devnet",
				"sui-mainnet",
				"sui-testnet",
			},
		},
	}

	EnvsToTest = []config.Env{
		config.EnvLocal,
		config.EnvDevelopment,
		config.EnvProduction,
	}
)

// New starts an fx app with the config, logger, metrics and system manager wired in.
func New(t testing.TB, opts ...fx.Option) TestApp {
	manager := services.NewMockSystemManager()

	var cfg *config.Config
	opts = append(
		opts,
		config.Module,
		fx.NopLogger,
		fx.Provide(func() testing.TB { return t }),
		fx.Provide(func() *zap.Logger { return manager.Logger() }),
		fx.Provide(func() tally.Scope { return tally.NoopScope }),
		fx.Provide(func() services.SystemManager { return manager }),
		fx.Populate(&cfg),
	)

	app := fxtest.New(t, opts...)
	app.RequireStart()
	return &testAppImpl{
		app:    app,
		logger: manager.Logger(),
		config: cfg,
	}
}

func WithConfig(cfg *config.Config) fx.Option {
	return config.WithCustomConfig(cfg)
}

// WithNetwork loads the config of the given network.
func WithNetwork(network string) fx.Option {
	cfg, err := config.New(config.WithNetwork(network))
	if err != nil {
		panic(err)
	}

	return WithConfig(cfg)
}

// WithIntegration runs the test only if $TEST_TYPE is integration.
func WithIntegration() fx.Option {
	return fx.Invoke(func(tb testing.TB, cfg *config.Config, logger *zap.Logger) {
		if !cfg.IsIntegrationTest() {
			logger.Warn("skipping integration test", zap.String("test", tb.Name()))
			tb.Skip()
		}
	})
}

func (a *testAppImpl) Close() {
	a.app.RequireStop()
}

func (a *testAppImpl) Logger() *zap.Logger {
	return a.logger
}

func (a *testAppImpl) Config() *config.Config {
	return a.config
}

func TestAllEnvs(t *testing.T, fn TestFn) {
	for _, env := range EnvsToTest {
		t.Run(string(env), func(t *testing.T) {
			require := testutil.Require(t)

			cfg, err := config.New(config.WithEnvironment(env))
			require.NoError(err)
			require.Equal(env, cfg.Env())

			fn(t, cfg)
		})
	}
}

func TestAllConfigs(t *testing.T, fn TestFn) {
	for _, testConfig := range TestConfigs {
		namespace := testConfig.Namespace
		for _, configName := range testConfig.ConfigNames {
			configName := configName
			t.Run(fmt.Sprintf("%v/%v", namespace, configName), func(t *testing.T) {
				for _, env := range EnvsToTest {
					t.Run(string(env), func(t *testing.T) {
						require := testutil.Require(t)

						network, err := config.ParseConfigName(configName)
						require.NoError(err)

						cfg, err := config.New(
							config.WithNamespace(namespace),
							config.WithEnvironment(env),
							config.WithNetwork(network),
						)
						require.NoError(err)
						require.Equal(namespace, cfg.Namespace())
						require.Equal(env, cfg.Env())
						require.Equal(network, cfg.Network())

						fn(t, cfg)
					})
				}
			})
		}
	}
}
