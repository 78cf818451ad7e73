package instrument

import (
	"context"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/retry"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/timesource"
)

type (
	// Instrument records the outcome and latency of an operation as metrics,
	// a debug/warn log line and a datadog span.
	Instrument interface {
		Instrument(ctx context.Context, operation OperationFn, opts ...CallOption) error
		WithRetry(r retry.Retry) Instrument
	}

	OperationFn func(ctx context.Context) error

	// FilterFn returns true for errors that should be counted as a success, e.g. a missing object.
	FilterFn func(err error) bool

	Option     func(o *options)
	CallOption func(o *callOptions)

	instrumentImpl struct {
		success  tally.Counter
		filtered tally.Counter
		failure  tally.Counter
		latency  tally.Timer
		retry    retry.Retry
		*options
	}

	options struct {
		filter     FilterFn
		timeSource timesource.TimeSource
		logger     *zap.Logger
		loggerMsg  string
		tracerMsg  string
		tracerTags map[string]string
	}

	callOptions struct {
		loggerFields []zap.Field
	}
)

const (
	resultTypeTag = "result_type"
	filteredTag   = "filtered"
	latencyName   = "latency"
)

func New(scope tally.Scope, name string, opts ...Option) Instrument {
	o := &options{
		timeSource: timesource.NewRealTimeSource(),
		logger:     zap.NewNop(),
		loggerMsg:  name,
		tracerMsg:  name,
		tracerTags: make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &instrumentImpl{
		success:  scope.Tagged(map[string]string{resultTypeTag: "success"}).Counter(name),
		filtered: scope.Tagged(map[string]string{resultTypeTag: "success", filteredTag: "true"}).Counter(name),
		failure:  scope.Tagged(map[string]string{resultTypeTag: "error"}).Counter(name),
		latency:  scope.SubScope(name).Timer(latencyName),
		options:  o,
	}
}

// Call instruments an operation producing a value.
func Call[T any](ctx context.Context, i Instrument, operation func(ctx context.Context) (T, error), opts ...CallOption) (T, error) {
	var result T
	err := i.Instrument(ctx, func(ctx context.Context) error {
		res, err := operation(ctx)
		if err != nil {
			return err
		}

		result = res
		return nil
	}, opts...)
	return result, err
}

func WithFilter(filter FilterFn) Option {
	return func(o *options) {
		o.filter = filter
	}
}

func WithLogger(logger *zap.Logger, msg string) Option {
	return func(o *options) {
		o.logger = logger
		o.loggerMsg = msg
	}
}

func WithTracer(msg string, tags map[string]string) Option {
	return func(o *options) {
		o.tracerMsg = msg
		for k, v := range tags {
			o.tracerTags[k] = v
		}
	}
}

func WithTimeSource(timeSource timesource.TimeSource) Option {
	return func(o *options) {
		o.timeSource = timeSource
	}
}

func WithLoggerFields(fields ...zap.Field) CallOption {
	return func(o *callOptions) {
		o.loggerFields = append(o.loggerFields, fields...)
	}
}

func (i *instrumentImpl) WithRetry(r retry.Retry) Instrument {
	clone := *i
	clone.retry = r
	return &clone
}

func (i *instrumentImpl) Instrument(ctx context.Context, operation OperationFn, opts ...CallOption) error {
	co := new(callOptions)
	for _, opt := range opts {
		opt(co)
	}

	startTime := i.timeSource.Now()
	span, ctx := i.startSpan(ctx, startTime)

	var err error
	if i.retry != nil {
		err = i.retry.Retry(ctx, retry.OperationFn(operation))
	} else {
		err = operation(ctx)
	}

	finishTime := i.timeSource.Now()
	duration := finishTime.Sub(startTime)
	i.latency.Record(duration)

	logger := i.logger.With(zap.Duration("duration", duration))
	if len(co.loggerFields) > 0 {
		logger = logger.With(co.loggerFields...)
	}

	switch {
	case err == nil:
		i.success.Inc(1)
		logger.Debug(i.loggerMsg)
		span.Finish(tracer.FinishTime(finishTime))
	case i.filter != nil && i.filter(err):
		i.filtered.Inc(1)
		logger.Debug(i.loggerMsg, zap.Error(err))
		span.Finish(tracer.FinishTime(finishTime), tracer.WithError(err))
	default:
		i.failure.Inc(1)
		logger.Warn(i.loggerMsg, zap.Error(err))
		span.Finish(tracer.FinishTime(finishTime), tracer.WithError(err))
	}

	return err
}

func (i *instrumentImpl) startSpan(ctx context.Context, startTime time.Time) (tracer.Span, context.Context) {
	opts := []tracer.StartSpanOption{
		tracer.SpanType("custom"),
		tracer.StartTime(startTime),
	}
	for k, v := range i.tracerTags {
		opts = append(opts, tracer.Tag(k, v))
	}
	return tracer.StartSpanFromContext(ctx, i.tracerMsg, opts...)
}
