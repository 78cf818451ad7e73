package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestHTTPClient_Default(t *testing.T) {
	require := testutil.Require(t)

	client := newHTTPClient()
	require.Zero(client.Timeout)
	require.Nil(client.Jar)
}

func TestHTTPClient_StickySessionCookiePassive(t *testing.T) {
	require := testutil.Require(t)

	client := newHTTPClient(withStickySessionCookiePassive())
	require.NotNil(client.Jar)
}

func TestHTTPClient_Timeout(t *testing.T) {
	require := testutil.Require(t)

	client := newHTTPClient(withRequestTimeout(5 * time.Second))
	require.Equal(5*time.Second, client.Timeout)
}

func TestHTTPClient_Headers(t *testing.T) {
	require := testutil.Require(t)

	var apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newHTTPClient(withHeaders(map[string]string{"x-api-key": "secret"}))
	req, err := http.NewRequest(http.MethodPost, server.URL, nil)
	require.NoError(err)
	resp, err := client.Do(req)
	require.NoError(err)
	require.NoError(resp.Body.Close())

	require.Equal("secret", apiKey)
	require.Empty(req.Header.Get("x-api-key"))
}
