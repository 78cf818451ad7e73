package endpoints

import (
	"context"
	"math/rand"
	"net/http"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/picker"
)

type (
	// EndpointProvider routes requests to one of the primary fullnodes based on their weights.
	// Once a context is marked for failover, requests go to the secondary fullnodes instead.
	// `EndpointGroup.UseFailover` swaps the two lists.
	EndpointProvider interface {
		GetEndpoint(ctx context.Context) (*Endpoint, error)
		GetAllEndpoints() []*Endpoint
		WithFailoverContext(ctx context.Context) (context.Context, error)
		HasFailoverContext(ctx context.Context) bool
	}

	Endpoint struct {
		Name   string
		Config *config.Endpoint
		Client *http.Client

		requestsCounter tally.Counter
	}

	EndpointProviderParams struct {
		fx.In
		Config *config.Config
		Logger *zap.Logger
		Scope  tally.Scope
	}

	// EndpointProviderResult exposes the read and the write path separately,
	// so that transaction submission can be pinned to a different fullnode.
	EndpointProviderResult struct {
		fx.Out
		Reader   EndpointProvider `name:"reader"`
		Executor EndpointProvider `name:"executor"`
	}

	endpointProvider struct {
		name               string
		primaryPicker      picker.Picker[*Endpoint]
		primaryEndpoints   []*Endpoint
		secondaryPicker    picker.Picker[*Endpoint]
		secondaryEndpoints []*Endpoint
	}

	contextKey string
)

const (
	readerEndpointGroupName   = "reader"
	executorEndpointGroupName = "executor"
	contextKeyFailover        = "failover:"
)

var (
	ErrNoEndpoint          = xerrors.New("no endpoint is available")
	ErrFailoverUnavailable = xerrors.New("no endpoint is available for failover")
)

func NewEndpointProvider(params EndpointProviderParams) (EndpointProviderResult, error) {
	logger := log.WithPackage(params.Logger)
	scope := params.Scope.SubScope("endpoints")
	client := &params.Config.Ledger.Client

	reader, err := newEndpointProvider(logger, client, scope, &client.Reader.EndpointGroup, readerEndpointGroupName)
	if err != nil {
		return EndpointProviderResult{}, xerrors.Errorf("failed to create reader endpoint provider: %w", err)
	}

	executor, err := newEndpointProvider(logger, client, scope, &client.Executor.EndpointGroup, executorEndpointGroupName)
	if err != nil {
		return EndpointProviderResult{}, xerrors.Errorf("failed to create executor endpoint provider: %w", err)
	}

	return EndpointProviderResult{
		Reader:   reader,
		Executor: executor,
	}, nil
}

func newEndpointProvider(
	logger *zap.Logger,
	cfg *config.ClientConfig,
	scope tally.Scope,
	endpointGroup *config.EndpointGroup,
	name string,
) (EndpointProvider, error) {
	primaryEndpoints, primaryPicker := newEndpoints(logger, cfg, scope, endpointGroup.Endpoints, &endpointGroup.EndpointConfig)
	secondaryEndpoints, secondaryPicker := newEndpoints(logger, cfg, scope, endpointGroup.EndpointsFailover, &endpointGroup.EndpointConfigFailover)
	if endpointGroup.UseFailover {
		logger.Warn("using failover endpoints", zap.String("endpoint_group", name))
		primaryEndpoints, secondaryEndpoints = secondaryEndpoints, primaryEndpoints
		primaryPicker, secondaryPicker = secondaryPicker, primaryPicker
	}

	if len(primaryEndpoints) == 0 {
		return nil, xerrors.Errorf("endpoint group %v has no primary endpoint", name)
	}

	return &endpointProvider{
		name:               name,
		primaryPicker:      primaryPicker,
		primaryEndpoints:   primaryEndpoints,
		secondaryPicker:    secondaryPicker,
		secondaryEndpoints: secondaryEndpoints,
	}, nil
}

func newEndpoints(
	logger *zap.Logger,
	cfg *config.ClientConfig,
	scope tally.Scope,
	endpoints []config.Endpoint,
	endpointConfig *config.EndpointConfig,
) ([]*Endpoint, picker.Picker[*Endpoint]) {
	res := make([]*Endpoint, len(endpoints))
	for i := range endpoints {
		res[i] = newEndpoint(logger, cfg, scope, &endpoints[i], endpointConfig)
	}

	// Shuffle so that a fleet of fresh processes does not start on the same fullnode.
	rand.Shuffle(len(res), func(i, j int) {
		res[i], res[j] = res[j], res[i]
	})

	choices := make([]picker.Choice[*Endpoint], len(res))
	for i, endpoint := range res {
		choices[i] = picker.Choice[*Endpoint]{
			Item:   endpoint,
			Weight: int(endpoint.Config.Weight),
		}
	}

	return res, picker.New(choices)
}

func newEndpoint(
	logger *zap.Logger,
	cfg *config.ClientConfig,
	scope tally.Scope,
	endpoint *config.Endpoint,
	endpointConfig *config.EndpointConfig,
) *Endpoint {
	var opts []ClientOption
	if endpointConfig.StickySession.CookiePassive {
		opts = append(opts, withStickySessionCookiePassive())
		logger.Info("creating http client with sticky session", zap.String("endpoint", endpoint.Name))
	}

	if len(endpointConfig.Headers) > 0 {
		opts = append(opts, withHeaders(endpointConfig.Headers))
	}

	if cfg.HttpTimeout > 0 {
		opts = append(opts, withRequestTimeout(cfg.HttpTimeout))
	}

	providerID := endpoint.ProviderID
	if providerID == "" {
		providerID = "unknown"
	}

	return &Endpoint{
		Name:   endpoint.Name,
		Config: endpoint,
		Client: newHTTPClient(opts...),
		requestsCounter: scope.
			Tagged(map[string]string{
				"endpoint_name": endpoint.Name,
				"provider_id":   providerID,
			}).
			Counter("requests"),
	}
}

func (e *endpointProvider) GetEndpoint(ctx context.Context) (*Endpoint, error) {
	activePicker := e.primaryPicker
	if e.HasFailoverContext(ctx) {
		activePicker = e.secondaryPicker
	}

	endpoint, ok := activePicker.Next()
	if !ok {
		return nil, ErrNoEndpoint
	}

	return endpoint, nil
}

func (e *endpointProvider) GetAllEndpoints() []*Endpoint {
	all := make([]*Endpoint, 0, len(e.primaryEndpoints)+len(e.secondaryEndpoints))
	all = append(all, e.primaryEndpoints...)
	return append(all, e.secondaryEndpoints...)
}

func (e *endpointProvider) WithFailoverContext(ctx context.Context) (context.Context, error) {
	if len(e.secondaryEndpoints) == 0 {
		return nil, ErrFailoverUnavailable
	}

	return context.WithValue(ctx, e.failoverContextKey(), struct{}{}), nil
}

func (e *endpointProvider) HasFailoverContext(ctx context.Context) bool {
	return ctx.Value(e.failoverContextKey()) != nil
}

func (e *endpointProvider) failoverContextKey() contextKey {
	return contextKey(contextKeyFailover + e.name)
}

func (e *Endpoint) IncRequestsCounter(n int64) {
	e.requestsCounter.Inc(n)
}
