package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/cron"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/dispatcher"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/projector"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/services"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/tally"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/views"
)

var (
	rootCmd = &cobra.Command{
		Use:          "syncd",
		Short:        "syncd keeps the views of one wallet in sync with the ledger and logs every change",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			viewer, err := utils.NormalizeAddress(syncdFlags.viewer)
			if err != nil {
				return fmt.Errorf("invalid viewer: %w", err)
			}

			manager := startManager(fx.Supply(Viewer(viewer)))
			manager.WaitForInterrupt()
			return nil
		},
	}

	syncdFlags struct {
		viewer string
	}
)

func init() {
	rootCmd.Flags().StringVar(&syncdFlags.viewer, "viewer", "", "address of the wallet whose views are kept in sync")
	if err := rootCmd.MarkFlagRequired("viewer"); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to execute command: %+v\n", err)
		os.Exit(1)
	}
}

func startManager(opts ...fx.Option) services.SystemManager {
	manager := services.NewManager()
	ctx := manager.Context()
	logger := manager.Logger()

	opts = append(
		opts,
		blockchain.Module,
		cache.Module,
		config.Module,
		cron.Module,
		dispatcher.Module,
		projector.Module,
		tally.Module,
		views.Module,
		fx.NopLogger,
		fx.Provide(func() services.SystemManager { return manager }),
		fx.Provide(func() *zap.Logger { return logger }),
		fx.Invoke(RegisterWatchers),
	)

	app := fx.New(opts...)

	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start app", zap.Error(err))
	}
	manager.AddShutdownHook(func() {
		logger.Info("shutting down syncd")
		if err := app.Stop(ctx); err != nil {
			logger.Error("failed to stop app", zap.Error(err))
		}
	})

	logger.Info("started syncd")
	return manager
}
