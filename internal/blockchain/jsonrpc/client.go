package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/endpoints"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/finalizer"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/instrument"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/ratelimiter"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/retry"
)

//go:generate mockgen -destination=mocks/mocks.go -package=jsonrpcmocks . Client,HTTPClient

type (
	// Client issues JSON-RPC 2.0 calls against a fullnode picked by the endpoint provider.
	Client interface {
		Call(ctx context.Context, method *RequestMethod, params Params, opts ...Option) (*Response, error)
	}

	HTTPClient interface {
		Do(req *http.Request) (*http.Response, error)
	}

	ClientParams struct {
		fx.In
		fxparams.Params
		Reader     endpoints.EndpointProvider `name:"reader"`
		Executor   endpoints.EndpointProvider `name:"executor"`
		HTTPClient HTTPClient                 `optional:"true"` // Injected by unit test.
	}

	ClientResult struct {
		fx.Out
		Reader   Client `name:"reader"`
		Executor Client `name:"executor"`
	}

	Request struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params"`
		ID      uint64 `json:"id"`
	}

	Response struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *RPCError       `json:"error,omitempty"`
		ID      uint64          `json:"id"`
	}

	RPCError struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data,omitempty"`
	}

	HTTPError struct {
		Code     int
		Response string
	}

	// RequestMethod names a method. A zero Timeout leaves the deadline to the caller's context.
	RequestMethod struct {
		Name    string
		Timeout time.Duration
	}

	Params []any

	Option func(opts *options)

	options struct {
		allowsRPCError bool
	}

	clientImpl struct {
		logger           *zap.Logger
		metrics          tally.Scope
		httpClient       HTTPClient
		retry            retry.Retry
		rateLimiter      *ratelimiter.RateLimiter
		endpointProvider endpoints.EndpointProvider
		nextID           uint64
	}
)

const (
	jsonrpcVersion = "2.0"
	instrumentName = "jsonrpc.request"
	maxLoggedBody  = 512
)

func New(params ClientParams) (ClientResult, error) {
	// Both paths share one budget since they usually hit the same provider.
	limiter := ratelimiter.New(params.Config.Ledger.Client.RateLimit)

	reader, err := newClient(params, params.Reader, limiter, "reader")
	if err != nil {
		return ClientResult{}, xerrors.Errorf("failed to create reader client: %w", err)
	}

	executor, err := newClient(params, params.Executor, limiter, "executor")
	if err != nil {
		return ClientResult{}, xerrors.Errorf("failed to create executor client: %w", err)
	}

	return ClientResult{
		Reader:   reader,
		Executor: executor,
	}, nil
}

// WithAllowsRPCError returns the response instead of an error when the node answers with an RPC error.
func WithAllowsRPCError() Option {
	return func(opts *options) {
		opts.allowsRPCError = true
	}
}

func newClient(params ClientParams, endpointProvider endpoints.EndpointProvider, limiter *ratelimiter.RateLimiter, name string) (Client, error) {
	if endpointProvider == nil {
		return nil, xerrors.Errorf("missing endpoint provider for %v", name)
	}

	logger := log.WithPackage(params.Logger).With(zap.String("client", name))
	return &clientImpl{
		logger:  logger,
		metrics: params.Metrics.SubScope("jsonrpc").Tagged(map[string]string{"client": name}),
		retry: retry.New(
			retry.WithLogger(logger),
			retry.WithMaxAttempts(params.Config.Ledger.Client.Retry.MaxAttempts),
		),
		httpClient:       params.HTTPClient,
		rateLimiter:      limiter,
		endpointProvider: endpointProvider,
	}, nil
}

func (c *clientImpl) Call(ctx context.Context, method *RequestMethod, params Params, opts ...Option) (*Response, error) {
	var options options
	for _, opt := range opts {
		opt(&options)
	}

	if params == nil {
		params = Params{}
	}

	endpoint, err := c.endpointProvider.GetEndpoint(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to get endpoint for request: %w", err)
	}

	request := &Request{
		JSONRPC: jsonrpcVersion,
		Method:  method.Name,
		Params:  params,
		ID:      atomic.AddUint64(&c.nextID, 1),
	}

	var response *Response
	if err := c.wrap(ctx, method.Name, endpoint.Name, params, func(ctx context.Context) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return xerrors.Errorf("failed to wait for rate limiter: %w", err)
		}

		endpoint.IncRequestsCounter(1)
		response = new(Response)
		if err := c.makeHTTPRequest(ctx, method.Timeout, endpoint, request, response); err != nil {
			return xerrors.Errorf("failed to make http request (method=%v, params=%v, endpoint=%v): %w", method.Name, params, endpoint.Name, err)
		}

		return nil
	}); err != nil && (response == nil || response.Error == nil) {
		return nil, err
	}

	if response.Error != nil && !options.allowsRPCError {
		return nil, xerrors.Errorf("received rpc error (method=%v, params=%v, endpoint=%v): %w", method.Name, params, endpoint.Name, response.Error)
	}

	return response, nil
}

func (c *clientImpl) makeHTTPRequest(ctx context.Context, timeout time.Duration, endpoint *endpoints.Endpoint, data any, out *Response) error {
	requestBody, err := json.Marshal(data)
	if err != nil {
		return xerrors.Errorf("failed to marshal request: %w", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.Config.Url, bytes.NewReader(requestBody))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", sanitizedError(err))
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	if user, password := endpoint.Config.User, endpoint.Config.Password; user != "" && password != "" {
		request.SetBasicAuth(user, password)
	}

	response, err := c.getHTTPClient(endpoint).Do(request)
	if err != nil {
		return retry.Retryable(xerrors.Errorf("failed to send http request: %w", sanitizedError(err)))
	}

	finalizer := finalizer.WithCloser(response.Body)
	defer finalizer.Finalize()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return retry.Retryable(xerrors.Errorf("failed to read http response: %w", err))
	}

	if response.StatusCode != http.StatusOK {
		errHTTP := xerrors.Errorf("received http error: %w", &HTTPError{
			Code:     response.StatusCode,
			Response: string(responseBody),
		})

		// Keep the rpc error code when the body is still a valid envelope.
		_ = json.Unmarshal(responseBody, out)

		if response.StatusCode == http.StatusTooManyRequests {
			return retry.RateLimit(errHTTP)
		}

		if response.StatusCode >= http.StatusInternalServerError {
			return retry.Retryable(errHTTP)
		}

		return errHTTP
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return retry.Retryable(xerrors.Errorf("failed to decode response %v: %w", truncate(responseBody), err))
	}

	return finalizer.Close()
}

func (c *clientImpl) getHTTPClient(endpoint *endpoints.Endpoint) HTTPClient {
	if c.httpClient != nil {
		return c.httpClient
	}

	return endpoint.Client
}

// wrap decorates the operation with metrics, logging, tracing and retry.
func (c *clientImpl) wrap(ctx context.Context, method string, endpoint string, params Params, operation instrument.OperationFn) error {
	tags := map[string]string{
		"method":   method,
		"endpoint": endpoint,
	}
	logger := c.logger.With(
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Reflect("params", params),
	)
	return instrument.New(
		c.metrics.Tagged(tags),
		"request",
		instrument.WithTracer(instrumentName, tags),
		instrument.WithLogger(logger, instrumentName),
	).WithRetry(c.retry).Instrument(ctx, operation)
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPCError %v: %v", e.Code, e.Message)
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %v: %v", e.Code, e.Response)
}

func (r *Response) Unmarshal(out any) error {
	if err := json.Unmarshal(r.Result, out); err != nil {
		return xerrors.Errorf("failed to unmarshal result %v: %w", truncate(r.Result), err)
	}

	return nil
}

func IsNullOrEmpty(r json.RawMessage) bool {
	trimmed := bytes.TrimSpace(r)
	return len(trimmed) == 0 ||
		bytes.Equal(trimmed, []byte("{}")) ||
		bytes.Equal(trimmed, []byte("null"))
}

// sanitizedError drops the url from the error since it may carry an api key.
func sanitizedError(err error) error {
	var uerr *url.Error
	if xerrors.As(err, &uerr) {
		return uerr.Err
	}

	return err
}

func truncate(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}

	return string(body[:maxLoggedBody]) + "..."
}
