package endpoints

import (
	"context"
	"fmt"
	"testing"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testapp"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

const numPicks = 1000

func TestEndpointProvider_Weighted(t *testing.T) {
	require := testutil.Require(t)

	endpointGroup := &config.EndpointGroup{
		Endpoints: []config.Endpoint{
			{Name: "node0", Url: "https://node0.example.com", Weight: 3},
			{Name: "node1", Url: "https://node1.example.com", Weight: 1},
		},
	}

	provider, err := newEndpointProvider(zaptest.NewLogger(t), &config.ClientConfig{}, tally.NoopScope, endpointGroup, "reader")
	require.NoError(err)
	require.Len(provider.GetAllEndpoints(), 2)

	ctx := context.Background()
	pickStats := make(map[string]int)
	for i := 0; i < numPicks; i++ {
		pick, err := provider.GetEndpoint(ctx)
		require.NoError(err)
		pickStats[pick.Name] += 1
	}
	require.Equal(750, pickStats["node0"])
	require.Equal(250, pickStats["node1"])
}

func TestEndpointProvider_Failover(t *testing.T) {
	require := testutil.Require(t)

	endpointGroup := &config.EndpointGroup{
		Endpoints: []config.Endpoint{
			{Name: "primary", Url: "https://primary.example.com", Weight: 1},
		},
		EndpointsFailover: []config.Endpoint{
			{Name: "backup", Url: "https://backup.example.com", Weight: 1},
		},
	}

	provider, err := newEndpointProvider(zaptest.NewLogger(t), &config.ClientConfig{}, tally.NoopScope, endpointGroup, "reader")
	require.NoError(err)

	ctx := context.Background()
	require.False(provider.HasFailoverContext(ctx))
	endpoint, err := provider.GetEndpoint(ctx)
	require.NoError(err)
	require.Equal("primary", endpoint.Name)

	ctx, err = provider.WithFailoverContext(ctx)
	require.NoError(err)
	require.True(provider.HasFailoverContext(ctx))
	endpoint, err = provider.GetEndpoint(ctx)
	require.NoError(err)
	require.Equal("backup", endpoint.Name)
}

func TestEndpointProvider_UseFailover(t *testing.T) {
	require := testutil.Require(t)

	endpointGroup := &config.EndpointGroup{
		Endpoints: []config.Endpoint{
			{Name: "primary", Url: "https://primary.example.com", Weight: 1},
		},
		EndpointsFailover: []config.Endpoint{
			{Name: "backup", Url: "https://backup.example.com", Weight: 1},
		},
		UseFailover: true,
	}

	provider, err := newEndpointProvider(zaptest.NewLogger(t), &config.ClientConfig{}, tally.NoopScope, endpointGroup, "reader")
	require.NoError(err)

	endpoint, err := provider.GetEndpoint(context.Background())
	require.NoError(err)
	require.Equal("backup", endpoint.Name)
}

func TestEndpointProvider_FailoverUnavailable(t *testing.T) {
	require := testutil.Require(t)

	endpointGroup := &config.EndpointGroup{
		Endpoints: []config.Endpoint{
			{Name: "primary", Url: "https://primary.example.com", Weight: 1},
		},
	}

	provider, err := newEndpointProvider(zaptest.NewLogger(t), &config.ClientConfig{}, tally.NoopScope, endpointGroup, "reader")
	require.NoError(err)

	_, err = provider.WithFailoverContext(context.Background())
	require.ErrorIs(err, ErrFailoverUnavailable)
}

func TestEndpointProvider_Empty(t *testing.T) {
	require := testutil.Require(t)

	_, err := newEndpointProvider(zaptest.NewLogger(t), &config.ClientConfig{}, tally.NoopScope, &config.EndpointGroup{}, "reader")
	require.Error(err)
}

func TestNewEndpointProvider(t *testing.T) {
	testapp.TestAllConfigs(t, func(t *testing.T, cfg *config.Config) {
		require := testutil.Require(t)

		var result struct {
			fx.In
			Reader   EndpointProvider `name:"reader"`
			Executor EndpointProvider `name:"executor"`
		}
		app := testapp.New(
			t,
			testapp.WithConfig(cfg),
			Module,
			fx.Populate(&result),
		)
		defer app.Close()

		require.NotNil(result.Reader)
		require.NotNil(result.Executor)
		for _, endpoint := range result.Reader.GetAllEndpoints() {
			require.Contains(endpoint.Config.Url, fmt.Sprintf("fullnode.%v.sui.io", cfg.Network()))
		}
	})
}
