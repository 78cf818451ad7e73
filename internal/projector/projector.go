// Package projector turns decoded ledger events and objects into the materialized views.
// Projections are recomputed wholesale on every pass and never mutate their inputs.
package projector

import (
	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
)

type (
	Params struct {
		fx.In
		fxparams.Params
	}

	// Projector holds the logger and counters of the event-driven projections.
	// It carries no view state.
	Projector struct {
		config  *config.ProjectorConfig
		logger  *zap.Logger
		skipped tally.Scope
	}

	decoded[T any] struct {
		event   *event.RawEvent
		payload *T
	}
)

func New(params Params) *Projector {
	return newProjector(&params.Config.Projector, params.Logger, params.Metrics)
}

func newProjector(cfg *config.ProjectorConfig, logger *zap.Logger, scope tally.Scope) *Projector {
	return &Projector{
		config:  cfg,
		logger:  log.WithPackage(logger),
		skipped: scope.SubScope("projector"),
	}
}

// decodeAll decodes the events of one kind, skipping and logging the malformed ones.
// Events of other kinds are ignored.
func decodeAll[T any, PT interface {
	*T
	event.Payload
}](p *Projector, events []*event.RawEvent) []decoded[T] {
	var kind event.Kind = PT(new(T)).Kind()
	result := make([]decoded[T], 0, len(events))
	for _, e := range events {
		if e == nil || e.Kind() != kind {
			continue
		}

		payload, err := event.DecodeAs[T, PT](e)
		if err != nil {
			p.logger.Warn(
				"skipping malformed event",
				zap.String("kind", string(kind)),
				zap.String("event", e.Key()),
				zap.Error(err),
			)
			p.skipped.Tagged(map[string]string{"kind": string(kind)}).Counter("skipped").Inc(1)
			continue
		}

		result = append(result, decoded[T]{event: e, payload: payload})
	}

	return result
}
