package services

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
)

type (
	// SystemManager owns the process lifetime of a long running binary such as syncd.
	SystemManager interface {
		Context() context.Context
		Logger() *zap.Logger
		Tracer() opentracing.Tracer
		ServiceContext() context.Context
		State() ServiceState
		AddShutdownHook(ShutdownHook)
		WaitForInterrupt()
		Shutdown()
	}

	ManagerOption func(*managerOpts)

	systemManager struct {
		mu    sync.RWMutex
		state ServiceState

		logger *zap.Logger
		tracer opentracing.Tracer

		ctx              context.Context
		serviceCtx       context.Context
		serviceCtxCancel context.CancelFunc
		shutdownHooks    []ShutdownHook
		shutdownOnce     sync.Once
		shutdownCh       chan struct{}
	}

	managerOpts struct {
		logger      *zap.Logger
		rootContext context.Context
	}

	ServiceState int

	ShutdownHook func()
)

const (
	Starting ServiceState = iota + 1
	Running
	Stopping
	Terminated
)

// termDelay is how long a second signal waits before forcing the exit.
const termDelay = 20 * time.Second

func NewManager(opts ...ManagerOption) SystemManager {
	mOpts := managerOpts{
		rootContext: context.Background(),
	}
	for _, opt := range opts {
		opt(&mOpts)
	}
	if mOpts.logger == nil {
		mOpts.logger = log.New()
	}

	manager := &systemManager{
		state:      Starting,
		logger:     mOpts.logger,
		tracer:     opentracing.GlobalTracer(),
		shutdownCh: make(chan struct{}),
	}
	manager.ctx = ctxzap.ToContext(mOpts.rootContext, manager.logger)
	manager.serviceCtx, manager.serviceCtxCancel = context.WithCancel(manager.ctx)
	return manager
}

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(o *managerOpts) {
		o.logger = logger
	}
}

func WithContext(ctx context.Context) ManagerOption {
	return func(o *managerOpts) {
		o.rootContext = ctx
	}
}

// GracefulShutdown calls killFunc on the first SIGINT or SIGTERM.
// A second signal forces the exit after termDelay and a third one exits immediately.
func GracefulShutdown(ctx context.Context, killFunc func()) {
	logger := ctxzap.Extract(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		count := 0
		for sig := range signals {
			switch count {
			case 0:
				logger.Info("shutdown requested", zap.String("signal", sig.String()))
				go killFunc()
			case 1:
				logger.Info("forced termination scheduled", zap.Duration("delay", termDelay))
				time.AfterFunc(termDelay, func() { os.Exit(2) })
			default:
				logger.Warn("forced termination", zap.String("signal", sig.String()))
				_ = logger.Sync()
				os.Exit(2)
			}
			count++
		}
	}()
}

func (m *systemManager) Context() context.Context {
	return m.ctx
}

func (m *systemManager) Logger() *zap.Logger {
	return m.logger
}

func (m *systemManager) Tracer() opentracing.Tracer {
	return m.tracer
}

// ServiceContext is cancelled as soon as shutdown begins.
func (m *systemManager) ServiceContext() context.Context {
	return m.serviceCtx
}

func (m *systemManager) State() ServiceState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *systemManager) setState(state ServiceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// AddShutdownHook registers a hook; hooks run sequentially after the service context is cancelled.
func (m *systemManager) AddShutdownHook(hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, hook)
}

func (m *systemManager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownCh)
	})
}

// WaitForInterrupt blocks until Shutdown is called or a termination signal arrives,
// then runs the shutdown hooks.
func (m *systemManager) WaitForInterrupt() {
	m.setState(Running)
	GracefulShutdown(m.serviceCtx, m.Shutdown)

	<-m.shutdownCh
	m.setState(Stopping)
	m.logger.Info("shutting down")
	m.serviceCtxCancel()

	m.mu.RLock()
	hooks := m.shutdownHooks
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook()
	}

	_ = m.logger.Sync()
	m.setState(Terminated)
}
