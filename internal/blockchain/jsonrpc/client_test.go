package jsonrpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/fx"
	"go.uber.org/mock/gomock"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/endpoints"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/jsonrpc"
	jsonrpcmocks "github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/jsonrpc/mocks"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/retry"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testapp"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

type (
	clientParams struct {
		fx.In
		Reader   jsonrpc.Client `name:"reader"`
		Executor jsonrpc.Client `name:"executor"`
	}

	balance struct {
		CoinType     string `json:"coinType"`
		TotalBalance string `json:"totalBalance"`
	}
)

var getBalanceMethod = &jsonrpc.RequestMethod{Name: "suix_getBalance"}

func TestCall(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		var request jsonrpc.Request
		require.NoError(json.NewDecoder(req.Body).Decode(&request))
		require.Equal("2.0", request.JSONRPC)
		require.Equal("suix_getBalance", request.Method)
		require.Equal([]any{"0xabc", "0x2::sui::SUI"}, request.Params)
		require.Equal("application/json", req.Header.Get("Content-Type"))
		return newResponse(http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"coinType":"0x2::sui::SUI","totalBalance":"1500000000"}}`), nil
	})

	client := newReader(t, httpClient, 1)
	response, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc", "0x2::sui::SUI"})
	require.NoError(err)

	var result balance
	require.NoError(response.Unmarshal(&result))
	require.Equal("1500000000", result.TotalBalance)
}

func TestCall_NilParams(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		require.NoError(err)
		require.Contains(string(body), `"params":[]`)
		return newResponse(http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"7"}`), nil
	})

	client := newReader(t, httpClient, 1)
	_, err := client.Call(context.Background(), &jsonrpc.RequestMethod{Name: "sui_getTotalTransactionBlocks"}, nil)
	require.NoError(err)
}

func TestCall_HTTPError(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusBadRequest, "bad request"), nil)

	client := newReader(t, httpClient, 3)
	_, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc"})
	require.Error(err)
	require.Contains(err.Error(), "method=suix_getBalance")
	require.Contains(err.Error(), "endpoint=node_name")

	var errHTTP *jsonrpc.HTTPError
	require.True(errors.As(err, &errHTTP))
	require.Equal(http.StatusBadRequest, errHTTP.Code)
	require.Equal("bad request", errHTTP.Response)
	require.False(retry.IsRetryable(err))
}

func TestCall_ServerErrorNotRetriedByDefault(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusBadGateway, "bad gateway"), nil).Times(1)

	client := newReader(t, httpClient, 1)
	_, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc"})
	require.Error(err)
	require.True(retry.IsRetryable(err))
}

func TestCall_ServerErrorRetried(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	gomock.InOrder(
		httpClient.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusServiceUnavailable, "unavailable"), nil),
		httpClient.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"totalBalance":"1"}}`), nil),
	)

	client := newReader(t, httpClient, 2)
	response, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc"})
	require.NoError(err)
	require.False(jsonrpc.IsNullOrEmpty(response.Result))
}

func TestCall_RateLimited(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusTooManyRequests, "slow down"), nil)

	client := newReader(t, httpClient, 1)
	_, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc"})
	require.Error(err)

	var errRateLimit *retry.RateLimitError
	require.True(errors.As(err, &errRateLimit))
}

func TestCall_RPCError(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid params"}}`), nil
	}).Times(2)

	client := newReader(t, httpClient, 1)
	_, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc"})
	require.Error(err)

	var errRPC *jsonrpc.RPCError
	require.True(errors.As(err, &errRPC))
	require.Equal(-32602, errRPC.Code)
	require.Equal("Invalid params", errRPC.Message)

	response, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc"}, jsonrpc.WithAllowsRPCError())
	require.NoError(err)
	require.NotNil(response.Error)
}

func TestCall_URLErrorIsSanitized(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Return(nil, &url.Error{
		Op:  "Post",
		URL: "https://node.example.com/?apikey=secret",
		Err: errors.New("connection refused"),
	})

	client := newReader(t, httpClient, 1)
	_, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc"})
	require.Error(err)
	require.Contains(err.Error(), "connection refused")
	require.NotContains(err.Error(), "secret")
}

func TestCall_InvalidJSON(t *testing.T) {
	require := testutil.Require(t)

	ctrl := gomock.NewController(t)
	httpClient := jsonrpcmocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Return(newResponse(http.StatusOK, `<html>`), nil)

	client := newReader(t, httpClient, 1)
	_, err := client.Call(context.Background(), getBalanceMethod, jsonrpc.Params{"0xabc"})
	require.Error(err)
	require.True(retry.IsRetryable(err))
}

func TestIsNullOrEmpty(t *testing.T) {
	require := testutil.Require(t)

	require.True(jsonrpc.IsNullOrEmpty(nil))
	require.True(jsonrpc.IsNullOrEmpty(json.RawMessage("null")))
	require.True(jsonrpc.IsNullOrEmpty(json.RawMessage("{}")))
	require.True(jsonrpc.IsNullOrEmpty(json.RawMessage(" null ")))
	require.False(jsonrpc.IsNullOrEmpty(json.RawMessage(`{"data":[]}`)))
}

func newReader(t *testing.T, httpClient jsonrpc.HTTPClient, maxAttempts int) jsonrpc.Client {
	cfg, err := config.New()
	if err != nil {
		t.Fatal(err)
	}

	dummyEndpoints := config.EndpointGroup{
		Endpoints: []config.Endpoint{
			{
				Name:   "node_name",
				Url:    "https://node.example.com",
				Weight: 1,
			},
		},
	}
	cfg.Ledger.Client.Reader.EndpointGroup = dummyEndpoints
	cfg.Ledger.Client.Executor.EndpointGroup = dummyEndpoints
	cfg.Ledger.Client.Retry.MaxAttempts = maxAttempts
	cfg.Ledger.Client.RateLimit = 0

	var params clientParams
	app := testapp.New(
		t,
		testapp.WithConfig(cfg),
		endpoints.Module,
		fx.Provide(jsonrpc.New),
		fx.Provide(func() jsonrpc.HTTPClient { return httpClient }),
		fx.Populate(&params),
	)
	t.Cleanup(app.Close)

	return params.Reader
}

func newResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
