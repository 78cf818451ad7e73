package cron

import (
	"context"
	"sort"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/dispatcher"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
)

type (
	SubscriptionReportParams struct {
		fx.In
		fxparams.Params
		Dispatcher *dispatcher.Dispatcher
	}

	// subscriptionReportTask reports the live views and the event subscriptions they share.
	subscriptionReportTask struct {
		config        *config.Config
		logger        *zap.Logger
		dispatcher    *dispatcher.Dispatcher
		views         tally.Gauge
		subscriptions tally.Gauge
	}
)

func NewSubscriptionReport(params SubscriptionReportParams) (Task, error) {
	scope := params.Metrics.SubScope("subscription_report")
	return &subscriptionReportTask{
		config:        params.Config,
		logger:        log.WithPackage(params.Logger),
		dispatcher:    params.Dispatcher,
		views:         scope.Gauge("views"),
		subscriptions: scope.Gauge("subscriptions"),
	}, nil
}

func (t *subscriptionReportTask) Name() string {
	return "subscription_report"
}

func (t *subscriptionReportTask) Spec() string {
	return every(t.config.Cron.SubscriptionReportInterval)
}

func (t *subscriptionReportTask) Parallelism() int64 {
	return 1
}

func (t *subscriptionReportTask) Enabled() bool {
	return t.config.Cron.SubscriptionReportInterval > 0
}

func (t *subscriptionReportTask) DelayStartDuration() time.Duration {
	return time.Minute
}

func (t *subscriptionReportTask) Run(ctx context.Context) error {
	subscriptions := t.dispatcher.Subscriptions()
	numViews := t.dispatcher.NumViews()
	t.views.Update(float64(numViews))
	t.subscriptions.Update(float64(len(subscriptions)))

	eventTypes := make([]string, 0, len(subscriptions))
	for eventType := range subscriptions {
		eventTypes = append(eventTypes, eventType)
	}
	sort.Strings(eventTypes)

	fields := make([]zap.Field, 0, len(eventTypes)+1)
	fields = append(fields, zap.Int("views", numViews))
	for _, eventType := range eventTypes {
		fields = append(fields, zap.Int(eventType, subscriptions[eventType]))
	}

	log.WithSpan(ctx, t.logger).Info("subscription report", fields...)
	return nil
}
