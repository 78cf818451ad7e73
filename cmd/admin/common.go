package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/dispatcher"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/projector"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/services"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/views"
)

const (
	envFlagName     = "env"
	networkFlagName = "network"
)

type (
	CmdApp interface {
		Close()
		Manager() services.SystemManager
		Config() *config.Config
	}

	cmdAppImpl struct {
		app     *fx.App
		manager services.SystemManager
		config  *config.Config
	}
)

var (
	commonFlags struct {
		env     string
		network string
		json    bool
	}

	logger *zap.Logger
	env    config.Env
)

func init() {
	logger = log.NewDevelopment()
	rootCmd.PersistentFlags().StringVar(&commonFlags.env, envFlagName, "", "one of [local, development, production]")
	rootCmd.PersistentFlags().StringVar(&commonFlags.network, networkFlagName, "", "network name (e.g. testnet)")
	rootCmd.PersistentFlags().BoolVar(&commonFlags.json, "json", false, "print the raw view as json")

	if err := rootCmd.MarkPersistentFlagRequired(networkFlagName); err != nil {
		logger.Fatal(fmt.Sprintf("error marking flag %s required", networkFlagName))
	}
	if err := rootCmd.MarkPersistentFlagRequired(envFlagName); err != nil {
		logger.Fatal(fmt.Sprintf("error marking flag %s required", envFlagName))
	}
}

// startApp wires the read path: ledger client, cache, projector and views.
// Push subscriptions are not opened since every command reads once.
func startApp(opts ...fx.Option) CmdApp {
	manager := services.NewManager(services.WithLogger(logger))

	network, err := utils.ParseNetwork(commonFlags.network)
	if err != nil {
		panic(xerrors.Errorf("failed to parse network: %w", err))
	}
	env = config.Env(commonFlags.env)

	cfg, err := config.New(
		config.WithNetwork(network),
		config.WithEnvironment(env),
	)
	if err != nil {
		panic(xerrors.Errorf("failed to create service config: %w", err))
	}
	cfg.Dispatcher.PushEnabled = false

	finalOpts := []fx.Option{
		blockchain.Module,
		cache.Module,
		config.Module,
		config.WithCustomConfig(cfg),
		dispatcher.Module,
		projector.Module,
		views.Module,
		fx.NopLogger,
		fx.Provide(func() *zap.Logger { return logger }),
		fx.Provide(func() tally.Scope { return tally.NoopScope }),
		fx.Provide(func() services.SystemManager { return manager }),
	}
	finalOpts = append(finalOpts, opts...)

	app := fx.New(finalOpts...)
	if err := app.Start(manager.Context()); err != nil {
		logger.Fatal("failed to start app", zap.Error(err))
	}

	return &cmdAppImpl{
		app:     app,
		manager: manager,
		config:  cfg,
	}
}

func (a *cmdAppImpl) Close() {
	if err := a.app.Stop(a.manager.Context()); err != nil {
		logger.Error("failed to stop app", zap.Error(err))
	}

	a.manager.Shutdown()
}

func (a *cmdAppImpl) Manager() services.SystemManager {
	return a.manager
}

func (a *cmdAppImpl) Config() *config.Config {
	return a.config
}

// withService runs fn against the views of the configured network.
func withService(fn func(s *views.Service) error) error {
	var deps struct {
		fx.In
		Service *views.Service
	}

	app := startApp(fx.Populate(&deps))
	defer app.Close()

	return fn(deps.Service)
}

// printJSON writes the view to stdout when --json is set and reports whether it did.
func printJSON(view any) (bool, error) {
	if !commonFlags.json {
		return false, nil
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(view); err != nil {
		return true, xerrors.Errorf("failed to encode view: %w", err)
	}

	return true, nil
}

func header(format string, args ...any) {
	fmt.Println(color.CyanString(format, args...))
}

func row(label string, value any) {
	fmt.Printf("  %v %v\n", color.MagentaString("%-16s", label), value)
}

func mist(amount uint64) string {
	return fmt.Sprintf("%.4f SUI", float64(amount)/1_000_000_000)
}
