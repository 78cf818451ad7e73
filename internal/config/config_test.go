package config_test

import (
	"testing"
	"time"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testapp"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
)

func TestValidateConfigs(t *testing.T) {
	testapp.TestAllConfigs(t, func(t *testing.T, cfg *config.Config) {
		require := testutil.Require(t)

		require.NotEmpty(cfg.ConfigName)
		require.NotEmpty(cfg.Ledger.Network)
		require.False(cfg.Ledger.Client.Reader.EndpointGroup.Empty())
		require.False(cfg.Ledger.Client.Executor.EndpointGroup.Empty())
		require.Equal(1, cfg.Ledger.Client.Retry.MaxAttempts, "reads must not retry internally")

		require.True(utils.IsValidAddress(cfg.Contracts.PackageID))
		require.True(utils.IsValidAddress(cfg.Contracts.MessagingPackage()))
		require.Equal("0x6", cfg.Contracts.ClockID)

		require.Equal(30*time.Second, cfg.Cache.DefaultTTL)
		require.Equal(10*time.Second, cfg.Cache.TTL.Messages)
		require.Equal(60*time.Second, cfg.Cache.TTL.NFTs)
		require.Equal(15*time.Second, cfg.Cache.TTL.Balance)
		require.Equal(10*time.Second, cfg.Cache.TTL.TriviaQuestion)
		require.Equal(30*time.Second, cfg.Cache.TTL.Leaderboard)
		require.Less(cfg.Cache.TTL.TriviaQuestion, cfg.Cache.TTL.Leaderboard)

		require.Less(cfg.Dispatcher.PollInterval.Thread, 5*time.Second+time.Millisecond)
		require.LessOrEqual(cfg.Dispatcher.PollInterval.Conversations, cfg.Dispatcher.PollInterval.Leaderboard)
		require.GreaterOrEqual(cfg.Overlay.MaxMissedCycles, 1)

		require.Equal(uint64(30_000_000), cfg.GasBudget.Message)
		require.Equal(uint64(100_000_000), cfg.GasBudget.NFTMint)
		require.Equal(uint64(75_000_000), cfg.GasBudget.GamePlay)
	})
}

func TestDefaultNetwork(t *testing.T) {
	testapp.TestAllEnvs(t, func(t *testing.T, cfg *config.Config) {
		require := testutil.Require(t)
		require.Equal("testnet", cfg.Network())
	})
}

func TestDemoProfilesDisabledOnMainnet(t *testing.T) {
	require := testutil.Require(t)
	cfg, err := config.New(config.WithNetwork("mainnet"), config.WithEnvironment(config.EnvProduction))
	require.NoError(err)
	require.False(cfg.Projector.DemoProfiles)
	require.NotNil(cfg.StatsD)
}

func TestConfig_OverrideNetwork(t *testing.T) {
	require := testutil.Require(t)

	cfg, err := config.New(config.WithNetwork("devnet"))
	require.NoError(err)
	require.Equal("devnet", cfg.Network())
	require.Equal("sui_devnet", cfg.ConfigName)
	require.Equal(config.DefaultNamespace, cfg.Namespace())
}

func TestConfig_UnknownNetwork(t *testing.T) {
	require := testutil.Require(t)

	t.Setenv(config.EnvVarConfigName, "sui-foonet")
	_, err := config.New()
	require.Error(err)
}

func TestConfigOverridingByEnvSettings(t *testing.T) {
	require := testutil.Require(t)

	endpointGroup := `
	{
		"endpoints": [
			{
				"name": "node1",
				"url": "https://node1.example.com",
				"weight": 1
			},
			{
				"name": "node2",
				"url": "https://node2.example.com",
				"weight": 2
			}
		],
		"endpoints_failover": [
			{
				"name": "backup",
				"url": "https://backup.example.com",
				"weight": 1
			}
		],
		"endpoint_config": {
			"headers": {
				"x-api-key": "secret"
			}
		}
	}`
	t.Setenv("DISCOVEER_LEDGER_CLIENT_READER_ENDPOINT_GROUP", endpointGroup)
	t.Setenv("DISCOVEER_CACHE_SINGLE_FLIGHT", "false")
	t.Setenv("DISCOVEER_OVERLAY_MAX_MISSED_CYCLES", "3")

	cfg, err := config.New()
	require.NoError(err)

	group := cfg.Ledger.Client.Reader.EndpointGroup
	require.Equal([]config.Endpoint{
		{Name: "node1", Url: "https://node1.example.com", Weight: 1},
		{Name: "node2", Url: "https://node2.example.com", Weight: 2},
	}, group.Endpoints)
	require.Len(group.EndpointsFailover, 1)
	require.Equal("secret", group.EndpointConfig.Headers["x-api-key"])
	require.False(cfg.Cache.SingleFlight)
	require.Equal(3, cfg.Overlay.MaxMissedCycles)

	// The executor group falls back to the reader group.
	require.Equal(group.Endpoints, cfg.Ledger.Client.Executor.EndpointGroup.Endpoints)
}

func TestConfig_InvalidContractAddress(t *testing.T) {
	require := testutil.Require(t)

	t.Setenv("DISCOVEER_CONTRACTS_PACKAGE_ID", "0x1234")
	_, err := config.New()
	require.Error(err)
	require.Contains(err.Error(), "sui_address")
}

func TestEndpointGroup_Error(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "invalid_json",
			input: `{"endpoints": [`,
		},
		{
			name:  "empty_endpoints",
			input: `{"endpoints": []}`,
		},
		{
			name:  "invalid_name",
			input: `{"endpoints": [{"url": "https://node.example.com"}]}`,
		},
		{
			name:  "invalid_url",
			input: `{"endpoints": [{"name": "node"}]}`,
		},
		{
			name:  "missing_failover",
			input: `{"endpoints": [{"name": "node", "url": "https://node.example.com"}], "use_failover": true}`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := testutil.Require(t)

			var actual config.EndpointGroup
			err := actual.UnmarshalText([]byte(test.input))
			require.Error(err)
		})
	}
}

func TestParseConfigName(t *testing.T) {
	tests := []struct {
		configName string
		network    string
		fails      bool
	}{
		{configName: "sui-testnet", network: "testnet"},
		{configName: "sui_mainnet", network: "mainnet"},
		{configName: "sui-devnet", network: "devnet"},
		{configName: "ethereum-mainnet", fails: true},
		{configName: "sui", fails: true},
		{configName: "sui-testnet-beta", fails: true},
	}
	for _, test := range tests {
		t.Run(test.configName, func(t *testing.T) {
			require := testutil.Require(t)

			network, err := config.ParseConfigName(test.configName)
			if test.fails {
				require.Error(err)
				return
			}

			require.NoError(err)
			require.Equal(test.network, network)
		})
	}
}

func TestGetCommonTags(t *testing.T) {
	require := testutil.Require(t)

	cfg, err := config.New(config.WithEnvironment(config.EnvDevelopment))
	require.NoError(err)
	require.Equal(map[string]string{
		"network": "testnet",
		"env":     "development",
	}, cfg.GetCommonTags())
}

func TestContractsConfig_Targets(t *testing.T) {
	require := testutil.Require(t)

	cfg, err := config.New()
	require.NoError(err)

	contracts := cfg.Contracts
	require.Equal(contracts.PackageID+"::dating_platform::swipe", contracts.Target("dating_platform", "swipe"))
	require.Equal(contracts.MessagingPackage()+"::messaging::send_message", contracts.Target("messaging", "send_message"))
	require.Equal(contracts.GamesPackageID+"::dice_game::play_dice", contracts.Target("dice_game", "play_dice"))
	require.Equal(contracts.NFTPackageID+"::nft::DiscoveerNFT", contracts.NFTType())

	contracts.MessagingPackageID = "0x00000000000000000000000000000000000000000000000000000000000000ee"
	require.Equal(contracts.MessagingPackageID, contracts.PackageFor("messaging"))
}
