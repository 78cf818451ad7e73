package log

import (
	"context"
	"path/filepath"
	"runtime"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func New() *zap.Logger {
	cfg := zap.NewProductionConfig()

	logger, err := cfg.Build(zap.AddStacktrace(zap.FatalLevel))
	if err != nil {
		panic(err)
	}

	return logger
}

func NewDevelopment() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		panic(err)
	}

	return logger
}

// WithPackage tags the logger with the package name of the caller.
func WithPackage(logger *zap.Logger) *zap.Logger {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return logger
	}

	return logger.With(zap.String("package", filepath.Base(filepath.Dir(file))))
}

// WithSpan attaches the datadog trace and span ids so that logs can be correlated with traces.
func WithSpan(ctx context.Context, logger *zap.Logger) *zap.Logger {
	span, ok := tracer.SpanFromContext(ctx)
	if !ok {
		return logger
	}

	spanContext := span.Context()
	return logger.With(
		zap.String("dd.trace_id", strconv.FormatUint(spanContext.TraceID(), 10)),
		zap.String("dd.span_id", strconv.FormatUint(spanContext.SpanID(), 10)),
	)
}
