package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
)

type (
	Config struct {
		ConfigName string           `mapstructure:"config_name" validate:"required"`
		Ledger     LedgerConfig     `mapstructure:"ledger"`
		Contracts  ContractsConfig  `mapstructure:"contracts"`
		Cache      CacheConfig      `mapstructure:"cache"`
		Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
		Overlay    OverlayConfig    `mapstructure:"overlay"`
		Projector  ProjectorConfig  `mapstructure:"projector"`
		GasBudget  GasBudgetConfig  `mapstructure:"gas_budget"`
		Cron       CronConfig       `mapstructure:"cron"`
		StatsD     *StatsDConfig    `mapstructure:"statsd"`

		namespace string
		env       Env
	}

	LedgerConfig struct {
		Network      string             `mapstructure:"network" validate:"required"`
		Client       ClientConfig       `mapstructure:"client"`
		Subscription SubscriptionConfig `mapstructure:"subscription"`
	}

	ClientConfig struct {
		Reader   JSONRPCConfig     `mapstructure:"reader"`
		Executor JSONRPCConfig     `mapstructure:"executor"`
		Retry    ClientRetryConfig `mapstructure:"retry"`
		// HttpTimeout bounds a single request. Zero means no timeout.
		HttpTimeout time.Duration `mapstructure:"http_timeout"`
		// RateLimit is the max requests per second across all endpoints. Zero means unlimited.
		RateLimit int `mapstructure:"rate_limit"`
	}

	JSONRPCConfig struct {
		EndpointGroup EndpointGroup `mapstructure:"endpoint_group"`
	}

	ClientRetryConfig struct {
		MaxAttempts int `mapstructure:"max_attempts"`
	}

	EndpointGroup struct {
		Endpoints              []Endpoint
		EndpointsFailover      []Endpoint
		UseFailover            bool
		EndpointConfig         EndpointConfig
		EndpointConfigFailover EndpointConfig
	}

	// endpointGroup must be in sync with EndpointGroup.
	endpointGroup struct {
		Endpoints              []Endpoint     `json:"endpoints"`
		EndpointsFailover      []Endpoint     `json:"endpoints_failover"`
		UseFailover            bool           `json:"use_failover"`
		EndpointConfig         EndpointConfig `json:"endpoint_config"`
		EndpointConfigFailover EndpointConfig `json:"endpoint_config_failover"`
	}

	Endpoint struct {
		Name       string `json:"name"`
		Url        string `json:"url"`
		User       string `json:"user"`
		Password   string `json:"password"`
		Weight     uint8  `json:"weight"`
		ProviderID string `json:"provider_id"`
	}

	EndpointConfig struct {
		StickySession StickySessionConfig `json:"sticky_session"`
		Headers       map[string]string   `json:"headers"`
	}

	StickySessionConfig struct {
		CookiePassive bool `json:"cookie_passive"`
	}

	SubscriptionConfig struct {
		Url              string        `mapstructure:"url"`
		PingInterval     time.Duration `mapstructure:"ping_interval"`
		HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	}

	ContractsConfig struct {
		PackageID          string `mapstructure:"package_id" validate:"required,sui_address"`
		MessagingPackageID string `mapstructure:"messaging_package_id" validate:"omitempty,sui_address"`
		MessageHubID       string `mapstructure:"message_hub_id" validate:"required,sui_address"`
		UserRegistryID     string `mapstructure:"user_registry_id" validate:"required,sui_address"`
		MatchRegistryID    string `mapstructure:"match_registry_id" validate:"required,sui_address"`
		NFTPackageID       string `mapstructure:"nft_package_id" validate:"required,sui_address"`
		NFTCollectionID    string `mapstructure:"nft_collection_id" validate:"required,sui_address"`
		GamesPackageID     string `mapstructure:"games_package_id" validate:"required,sui_address"`
		GameHouseID        string `mapstructure:"game_house_id" validate:"required,sui_address"`
		TriviaHubID        string `mapstructure:"trivia_hub_id" validate:"required,sui_address"`
		GroupRegistryID    string `mapstructure:"group_registry_id" validate:"required,sui_address"`
		ClockID            string `mapstructure:"clock_id" validate:"required"`
	}

	CacheConfig struct {
		DefaultTTL   time.Duration  `mapstructure:"default_ttl" validate:"required"`
		SingleFlight bool           `mapstructure:"single_flight"`
		TTL          CacheTTLConfig `mapstructure:"ttl"`
	}

	CacheTTLConfig struct {
		Messages       time.Duration `mapstructure:"messages"`
		NFTs           time.Duration `mapstructure:"nfts"`
		Balance        time.Duration `mapstructure:"balance"`
		TriviaQuestion time.Duration `mapstructure:"trivia_question"`
		TriviaStats    time.Duration `mapstructure:"trivia_stats"`
		Leaderboard    time.Duration `mapstructure:"leaderboard"`
		GameStats      time.Duration `mapstructure:"game_stats"`
		Profiles       time.Duration `mapstructure:"profiles"`
		Swipes         time.Duration `mapstructure:"swipes"`
		Matches        time.Duration `mapstructure:"matches"`
		Group          time.Duration `mapstructure:"group"`
	}

	DispatcherConfig struct {
		PushEnabled  bool               `mapstructure:"push_enabled"`
		PollEnabled  bool               `mapstructure:"poll_enabled"`
		SignalBuffer int                `mapstructure:"signal_buffer" validate:"required"`
		PollInterval PollIntervalConfig `mapstructure:"poll_interval"`
	}

	PollIntervalConfig struct {
		Conversations  time.Duration `mapstructure:"conversations" validate:"required"`
		Thread         time.Duration `mapstructure:"thread" validate:"required"`
		Matches        time.Duration `mapstructure:"matches" validate:"required"`
		Profiles       time.Duration `mapstructure:"profiles" validate:"required"`
		Leaderboard    time.Duration `mapstructure:"leaderboard" validate:"required"`
		TriviaQuestion time.Duration `mapstructure:"trivia_question" validate:"required"`
		GameStats      time.Duration `mapstructure:"game_stats" validate:"required"`
		NFTs           time.Duration `mapstructure:"nfts" validate:"required"`
		Balance        time.Duration `mapstructure:"balance" validate:"required"`
	}

	OverlayConfig struct {
		// MaxMissedCycles is the number of projection passes a provisional entity
		// may go unobserved before it is failed (pending) or dropped (confirmed).
		MaxMissedCycles int `mapstructure:"max_missed_cycles" validate:"required,min=1"`
	}

	ProjectorConfig struct {
		MessageQueryLimit      int  `mapstructure:"message_query_limit" validate:"required"`
		RegistrationQueryLimit int  `mapstructure:"registration_query_limit" validate:"required"`
		SwipeQueryLimit        int  `mapstructure:"swipe_query_limit" validate:"required"`
		MatchQueryLimit        int  `mapstructure:"match_query_limit" validate:"required"`
		AnswerQueryLimit       int  `mapstructure:"answer_query_limit" validate:"required"`
		NFTQueryLimit          int  `mapstructure:"nft_query_limit" validate:"required"`
		ResolveParallelism     int  `mapstructure:"resolve_parallelism" validate:"required"`
		DemoProfiles           bool `mapstructure:"demo_profiles"`
	}

	GasBudgetConfig struct {
		Default     uint64 `mapstructure:"default" validate:"required"`
		Message     uint64 `mapstructure:"message" validate:"required"`
		NFTMint     uint64 `mapstructure:"nft_mint" validate:"required"`
		NFTTransfer uint64 `mapstructure:"nft_transfer" validate:"required"`
		GamePlay    uint64 `mapstructure:"game_play" validate:"required"`
		GroupCreate uint64 `mapstructure:"group_create" validate:"required"`
	}

	CronConfig struct {
		CacheSweepInterval         time.Duration `mapstructure:"cache_sweep_interval"`
		SubscriptionReportInterval time.Duration `mapstructure:"subscription_report_interval"`
	}

	StatsDConfig struct {
		Address string `mapstructure:"address" validate:"required"`
		Prefix  string `mapstructure:"prefix"`
	}

	ConfigOption func(options *configOptions)

	Env string

	configOptions struct {
		Namespace string `validate:"required"`
		Network   string `validate:"required"`
		Env       Env    `validate:"required,oneof=production development local"`
	}
)

const (
	EnvVarNamespace   = "DISCOVEER_NAMESPACE"
	EnvVarConfigName  = "DISCOVEER_CONFIG"
	EnvVarEnvironment = "DISCOVEER_ENVIRONMENT"
	EnvVarConfigRoot  = "DISCOVEER_CONFIG_ROOT"
	EnvVarConfigPath  = "DISCOVEER_CONFIG_PATH"
	EnvVarTestType    = "TEST_TYPE"

	CurrentFileName = "/internal/config/config.go"

	DefaultNamespace  = "discoveer"
	DefaultConfigName = "sui-testnet"

	EnvBase        Env = "base"
	EnvLocal       Env = "local"
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
	envSecrets     Env = "secrets" // secrets.yml is merged into the env-specific config

	blockchainName = "sui"
	envPrefix      = "DISCOVEER"
	tagNetwork     = "network"
	tagEnv         = "env"

	validateTagAddress = "sui_address"

	moduleMessaging  = "messaging"
	moduleNFT        = "nft"
	moduleDiceGame   = "dice_game"
	moduleTriviaGame = "trivia_game"
	nftStructName    = "DiscoveerNFT"
)

func New(opts ...ConfigOption) (*Config, error) {
	validate, err := newValidator()
	if err != nil {
		return nil, xerrors.Errorf("failed to create validator: %w", err)
	}

	configName := getConfigName()
	configOpts, err := getConfigOptions(configName, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to get config options: %w", err)
	}

	if err := validate.Struct(configOpts); err != nil {
		return nil, xerrors.Errorf("failed to validate config options: %w", err)
	}

	configReader, err := getConfigData(configOpts.Namespace, EnvBase, configOpts.Network)
	if err != nil {
		return nil, xerrors.Errorf("failed to locate config file: %w", err)
	}

	cfg := Config{
		namespace: configOpts.Namespace,
		env:       configOpts.Env,
	}

	v := viper.New()
	v.SetConfigName(string(EnvBase))
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values.
	// Note that the default values may be overridden by environment variable or config file.
	v.SetDefault("cache.default_ttl", "30s")
	v.SetDefault("cache.single_flight", true)
	v.SetDefault("overlay.max_missed_cycles", 6)
	v.SetDefault("dispatcher.signal_buffer", 256)
	if cfg.IsTest() {
		v.SetDefault("dispatcher.push_enabled", false)
	}

	if err := v.ReadConfig(configReader); err != nil {
		return nil, xerrors.Errorf("failed to read config: %w", err)
	}

	// Merge in the env-specific config, such as development.yml
	if err := mergeInConfig(v, configOpts, configOpts.Env); err != nil {
		return nil, xerrors.Errorf("failed to merge in %v config: %w", configOpts.Env, err)
	}

	// Merge in .secrets.yml. Note that this is a no-op for development and production env.
	if err := mergeInConfig(v, configOpts, envSecrets); err != nil {
		return nil, xerrors.Errorf("failed to merge in %v config: %w", envSecrets, err)
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, xerrors.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.setDerivedConfigs()

	if err := validate.Struct(&cfg); err != nil {
		return nil, xerrors.Errorf("failed to validate config: %w", err)
	}

	if cfg.Ledger.Client.Reader.EndpointGroup.Empty() {
		return nil, xerrors.New("reader endpoint group cannot be empty")
	}

	return &cfg, nil
}

func newValidator() (*validator.Validate, error) {
	validate := validator.New()
	if err := validate.RegisterValidation(validateTagAddress, func(fl validator.FieldLevel) bool {
		return utils.IsValidAddress(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	return validate, nil
}

func GetEnv() Env {
	env := Env(os.Getenv(EnvVarEnvironment))
	switch env {
	case EnvDevelopment, EnvProduction:
		return env
	default:
		return EnvLocal
	}
}

func getConfigName() string {
	configName, ok := os.LookupEnv(EnvVarConfigName)
	if !ok {
		configName = DefaultConfigName
	}
	return configName
}

func GetConfigRoot() string {
	return os.Getenv(EnvVarConfigRoot)
}

func GetConfigPath() string {
	return os.Getenv(EnvVarConfigPath)
}

func mergeInConfig(v *viper.Viper, configOpts *configOptions, env Env) error {
	// Merge in the env-specific config if available.
	if configReader, err := getConfigData(configOpts.Namespace, env, configOpts.Network); err == nil {
		v.SetConfigName(string(env))
		if err := v.MergeConfig(configReader); err != nil {
			return xerrors.Errorf("failed to merge config %v: %w", env, err)
		}
	}
	return nil
}

func (c *Config) Namespace() string {
	return c.namespace
}

func (c *Config) Env() Env {
	return c.env
}

func (c *Config) Network() string {
	return c.Ledger.Network
}

func (c *Config) GetCommonTags() map[string]string {
	return map[string]string{
		tagNetwork: c.Network(),
		tagEnv:     string(c.Env()),
	}
}

func (c *Config) IsTest() bool {
	return os.Getenv(EnvVarTestType) != ""
}

func (c *Config) IsIntegrationTest() bool {
	return os.Getenv(EnvVarTestType) == "integration"
}

// MessagingPackage returns the package hosting the messaging module.
// It falls back to the main package when messaging is not deployed separately.
func (c *ContractsConfig) MessagingPackage() string {
	if c.MessagingPackageID != "" {
		return c.MessagingPackageID
	}

	return c.PackageID
}

// PackageFor returns the package publishing the given Move module.
func (c *ContractsConfig) PackageFor(module string) string {
	switch module {
	case moduleMessaging:
		return c.MessagingPackage()
	case moduleNFT:
		return c.NFTPackageID
	case moduleDiceGame, moduleTriviaGame:
		return c.GamesPackageID
	default:
		return c.PackageID
	}
}

// Target returns the fully qualified `package::module::function` of a Move entry function.
func (c *ContractsConfig) Target(module string, function string) string {
	return c.PackageFor(module) + "::" + module + "::" + function
}

// NFTType is the struct type of the collectible tokens held by users.
func (c *ContractsConfig) NFTType() string {
	return c.NFTPackageID + "::" + moduleNFT + "::" + nftStructName
}

func (c *Config) setDerivedConfigs() {
	if c.Ledger.Client.Executor.EndpointGroup.Empty() {
		c.Ledger.Client.Executor = c.Ledger.Client.Reader
	}

	if c.Ledger.Subscription.Url == "" {
		c.Dispatcher.PushEnabled = false
	}

	ttl := &c.Cache.TTL
	for _, d := range []*time.Duration{
		&ttl.Messages, &ttl.NFTs, &ttl.Balance, &ttl.TriviaQuestion, &ttl.TriviaStats,
		&ttl.Leaderboard, &ttl.GameStats, &ttl.Profiles, &ttl.Swipes, &ttl.Matches, &ttl.Group,
	} {
		if *d <= 0 {
			*d = c.Cache.DefaultTTL
		}
	}
}

func WithNamespace(namespace string) ConfigOption {
	return func(opts *configOptions) {
		opts.Namespace = namespace
	}
}

func WithNetwork(network string) ConfigOption {
	return func(opts *configOptions) {
		opts.Network = network
	}
}

func WithEnvironment(env Env) ConfigOption {
	return func(opts *configOptions) {
		opts.Env = env
	}
}

func getConfigOptions(configName string, opts ...ConfigOption) (*configOptions, error) {
	configOpts := &configOptions{}
	for _, opt := range opts {
		opt(configOpts)
	}

	if configOpts.Namespace == "" {
		namespace := os.Getenv(EnvVarNamespace)
		if namespace == "" {
			namespace = DefaultNamespace
		}

		configOpts.Namespace = namespace
	}

	if configOpts.Env == "" {
		configOpts.Env = GetEnv()
	}

	if configOpts.Network == "" {
		network, err := ParseConfigName(configName)
		if err != nil {
			return nil, xerrors.Errorf("failed to parse config name: %w", err)
		}

		configOpts.Network = network
	}

	return configOpts, nil
}

// ParseConfigName parses a config name such as "sui-testnet" or "sui_testnet" into the network.
func ParseConfigName(configName string) (string, error) {
	configName = strings.ReplaceAll(configName, "-", "_")

	splitString := strings.Split(configName, "_")
	if len(splitString) != 2 {
		return "", xerrors.Errorf("config name is invalid: %v", configName)
	}

	if splitString[0] != blockchainName {
		return "", xerrors.Errorf("unsupported blockchain in config name %v", configName)
	}

	network, err := utils.ParseNetwork(splitString[1])
	if err != nil {
		return "", xerrors.Errorf("failed to parse network from config name %v: %w", configName, err)
	}

	return network, nil
}

func getConfigData(namespace string, env Env, network string) (io.Reader, error) {
	configRoot := GetConfigRoot()
	if env == envSecrets {
		// .secrets.yml is intentionally not embedded in config.Store.
		// Read it from the file system instead.
		if len(configRoot) == 0 {
			_, filename, _, ok := runtime.Caller(0)
			if !ok {
				return nil, xerrors.Errorf("failed to recover the filename information")
			}
			rootDir := strings.TrimSuffix(filename, CurrentFileName)
			configRoot = fmt.Sprintf("%v/config", rootDir)
		}
		configPath := fmt.Sprintf("%v/%v/%v/%v/.secrets.yml", configRoot, namespace, blockchainName, network)
		reader, err := os.Open(configPath)
		if err != nil {
			return nil, xerrors.Errorf("failed to read config file %v: %w", configPath, err)
		}
		return reader, nil
	}

	configPath := GetConfigPath()
	if len(configPath) == 0 && len(configRoot) > 0 {
		configPath = fmt.Sprintf("%v/%v/%v/%v/%v.yml", configRoot, namespace, blockchainName, network, env)
	}

	if len(configPath) > 0 {
		reader, err := os.Open(configPath)
		if err != nil {
			return nil, xerrors.Errorf("failed to read config file %v: %w", configPath, err)
		}
		return reader, nil
	}

	configPath = fmt.Sprintf("%v/%v/%v/%v.yml", namespace, blockchainName, network, env)
	data, err := config.Store.ReadFile(configPath)
	if err != nil {
		return nil, xerrors.Errorf("failed to read config file %v: %w", configPath, err)
	}
	return bytes.NewBuffer(data), nil
}

func (e *EndpointGroup) Empty() bool {
	return len(e.Endpoints) == 0
}

func (e *EndpointGroup) UnmarshalText(text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		return nil
	}

	var eg endpointGroup
	if err := json.Unmarshal(text, &eg); err != nil {
		return xerrors.Errorf("failed to parse EndpointGroup JSON: %w", err)
	}

	if len(eg.Endpoints) == 0 {
		return xerrors.New("endpoints is empty")
	}
	if eg.UseFailover && len(eg.EndpointsFailover) == 0 {
		return xerrors.New("failover endpoints is empty")
	}

	e.Endpoints = eg.Endpoints
	e.EndpointsFailover = eg.EndpointsFailover
	e.UseFailover = eg.UseFailover
	e.EndpointConfig = eg.EndpointConfig
	e.EndpointConfigFailover = eg.EndpointConfigFailover

	for _, endpoints := range [][]Endpoint{e.Endpoints, e.EndpointsFailover} {
		for _, endpoint := range endpoints {
			if endpoint.Name == "" {
				return xerrors.New("empty endpoint.Name")
			}
			if endpoint.Url == "" {
				return xerrors.New("empty endpoint.URL")
			}
		}
	}
	return nil
}
