package services

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
)

type MockSystemManager struct {
	GContext        context.Context
	GLogger         *zap.Logger
	GTracer         opentracing.Tracer
	GServiceContext context.Context
	GShutdownHooks  []ShutdownHook
}

var _ SystemManager = (*MockSystemManager)(nil)

func NewMockSystemManager() *MockSystemManager {
	return &MockSystemManager{
		GContext:        context.Background(),
		GServiceContext: context.Background(),
		GLogger:         log.NewDevelopment(),
		GTracer:         opentracing.NoopTracer{},
	}
}

func (m *MockSystemManager) Context() context.Context {
	return m.GContext
}

func (m *MockSystemManager) Logger() *zap.Logger {
	return m.GLogger
}

func (m *MockSystemManager) Tracer() opentracing.Tracer {
	return m.GTracer
}

func (m *MockSystemManager) ServiceContext() context.Context {
	return m.GServiceContext
}

func (m *MockSystemManager) State() ServiceState {
	return Running
}

func (m *MockSystemManager) AddShutdownHook(hook ShutdownHook) {
	m.GShutdownHooks = append(m.GShutdownHooks, hook)
}

func (m *MockSystemManager) WaitForInterrupt() {
}

func (m *MockSystemManager) Shutdown() {
	for _, hook := range m.GShutdownHooks {
		hook()
	}
}
