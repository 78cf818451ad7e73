package config

import (
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In
		Override *override `optional:"true"`
	}

	override struct {
		config *Config
	}
)

var Module = fx.Options(
	fx.Provide(NewFacade),
)

// NewFacade loads the config from the embedded store unless a test injected one.
func NewFacade(params Params) (*Config, error) {
	if params.Override != nil {
		return params.Override.config, nil
	}

	return New()
}

// WithCustomConfig replaces the loaded config, e.g. with a tweaked copy in tests.
func WithCustomConfig(cfg *Config) fx.Option {
	return fx.Provide(func() *override {
		return &override{config: cfg}
	})
}
