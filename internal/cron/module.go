package cron

import (
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(fx.Annotated{
		Group:  "task",
		Target: NewCacheSweep,
	}),
	fx.Provide(fx.Annotated{
		Group:  "task",
		Target: NewSubscriptionReport,
	}),
	fx.Invoke(RegisterRunner),
)
