package endpoints

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
	tracehttp "gopkg.in/DataDog/dd-trace-go.v1/contrib/net/http"
)

type (
	ClientOption func(opts *clientOptions)

	clientOptions struct {
		timeout         time.Duration
		idleConnTimeout time.Duration
		maxConns        int
		jar             http.CookieJar
		headers         map[string]string
	}

	// headerRoundTripper stamps static headers, e.g. a provider api key, onto every request.
	headerRoundTripper struct {
		base    http.RoundTripper
		headers map[string]string
	}
)

const (
	defaultIdleConnTimeout = 30 * time.Second
	defaultMaxConns        = 32
)

func newHTTPClient(opts ...ClientOption) *http.Client {
	options := &clientOptions{
		idleConnTimeout: defaultIdleConnTimeout,
		maxConns:        defaultMaxConns,
	}
	for _, opt := range opts {
		opt(options)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Zero enables HTTP/2, see https://github.com/golang/go/issues/14391
	transport.ExpectContinueTimeout = 0
	transport.IdleConnTimeout = options.idleConnTimeout
	transport.MaxIdleConns = options.maxConns
	transport.MaxIdleConnsPerHost = options.maxConns

	var roundTripper http.RoundTripper = transport
	if len(options.headers) > 0 {
		roundTripper = &headerRoundTripper{
			base:    transport,
			headers: options.headers,
		}
	}

	client := &http.Client{
		// Zero means no timeout; callers bound requests through the context instead.
		Timeout:   options.timeout,
		Transport: roundTripper,
		Jar:       options.jar,
	}
	return tracehttp.WrapClient(client)
}

// withStickySessionCookiePassive persists the affinity cookie handed out by the load balancer.
func withStickySessionCookiePassive() ClientOption {
	return func(opts *clientOptions) {
		jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		opts.jar = jar
	}
}

func withHeaders(headers map[string]string) ClientOption {
	return func(opts *clientOptions) {
		opts.headers = headers
	}
}

func withRequestTimeout(timeout time.Duration) ClientOption {
	return func(opts *clientOptions) {
		opts.timeout = timeout
	}
}

func (rt *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrip must not modify the caller's request.
	req = req.Clone(req.Context())
	for key, value := range rt.headers {
		req.Header.Set(key, value)
	}

	return rt.base.RoundTrip(req)
}
