package dispatcher

import (
	"go.uber.org/fx"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/overlay"
)

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(d *Dispatcher) overlay.Invalidator { return d }),
)
