package main

import (
	"testing"

	"go.uber.org/fx"
	"go.uber.org/mock/gomock"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	clientmocks "github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client/mocks"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/dispatcher"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/projector"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testapp"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/views"
)

const viewer = "0x000000000000000000000000000000000000000000000000000000000000a11c"

func TestRegisterWatchers(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	ledger := clientmocks.NewMockClient(ctrl)
	ledger.EXPECT().QueryEvents(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	ledger.EXPECT().GetObject(gomock.Any(), gomock.Any()).Return(&client.Object{}, nil).AnyTimes()
	ledger.EXPECT().GetOwnedObjects(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	ledger.EXPECT().GetBalance(gomock.Any(), viewer, "").Return(&client.Balance{Owner: viewer}, nil).AnyTimes()

	var d *dispatcher.Dispatcher
	app := testapp.New(
		t,
		fx.Provide(func() client.Client { return ledger }),
		fx.Provide(func() client.Submitter { return clientmocks.NewMockSubmitter(ctrl) }),
		fx.Supply(Viewer(viewer)),
		cache.Module,
		dispatcher.Module,
		projector.Module,
		views.Module,
		fx.Invoke(RegisterWatchers),
		fx.Populate(&d),
	)

	require.Equal(8, d.NumViews())
	app.Close()
	require.Equal(0, d.NumViews())
}

func TestIntegrationSyncd(t *testing.T) {
	testapp.TestAllConfigs(t, func(t *testing.T, cfg *config.Config) {
		if !cfg.IsIntegrationTest() || cfg.Env() != config.EnvDevelopment {
			t.Skip()
		}

		manager := startManager(
			config.WithCustomConfig(cfg),
			fx.Supply(Viewer(viewer)),
		)

		manager.Shutdown()
		manager.WaitForInterrupt()
	})
}
