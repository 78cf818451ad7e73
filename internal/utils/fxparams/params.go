package fxparams

import (
	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
)

// Params bundles the dependencies shared by every component.
// Embed it in an fx.In struct:
//
//	MyParams struct {
//	  fx.In
//	  fxparams.Params
//	  ...
//	}
type Params struct {
	fx.In
	Config  *config.Config
	Logger  *zap.Logger
	Metrics tally.Scope
}
