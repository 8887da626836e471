package coingecko

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geckofetcher/internal/testserver"
	errs "geckofetcher/pkg/errors"
	"geckofetcher/pkg/logger"
)

type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func pageURL(base string, page int) string {
	return MarketsURL(base, MarketsEndpoint, MarketsQuery{
		Currency: DefaultCurrency, Order: DefaultOrder, PerPage: 2, Page: page, Periods: "1h",
	})
}

func TestFetchSuccess(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())
	body, err := client.Fetch(context.Background(), pageURL(srv.URL(), 1))

	require.NoError(t, err)
	assert.Contains(t, string(body), `"market_cap_rank":1`)
	assert.Contains(t, string(body), `"market_cap_rank":2`)
}

func TestFetchSendsHeaders(t *testing.T) {
	var got http.Header
	hc := &http.Client{Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		got = req.Header.Clone()
		return newResponse(http.StatusOK, `[]`), nil
	}}}

	client := NewClientWithHTTP(hc, logger.NewNopLogger())
	client.SetHeader("X-Cg-Demo-Api-Key", "k")

	_, err := client.Fetch(context.Background(), "http://upstream.test/coins/markets")
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "k", got.Get("X-Cg-Demo-Api-Key"))
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.FailPage(1, http.StatusBadGateway, 2)

	client := NewClient(5*time.Second, logger.NewNopLogger())
	body, err := client.Fetch(context.Background(), pageURL(srv.URL(), 1))

	require.NoError(t, err)
	assert.NotEmpty(t, body)
	assert.Equal(t, 3, srv.RequestCount())
}

func TestFetchRetriesExhausted(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.FailPage(1, http.StatusTooManyRequests, testserver.Always)

	client := NewClient(5*time.Second, logger.NewNopLogger())
	_, err := client.Fetch(context.Background(), pageURL(srv.URL(), 1))

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeRateLimit, errs.TypeOf(err))
	assert.Equal(t, 429, errs.StatusOf(err))
	assert.Equal(t, 3, srv.RequestCount())
}

func TestFetchNonRetryableStatus(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.FailPage(1, http.StatusNotFound, testserver.Always)

	client := NewClient(5*time.Second, logger.NewNopLogger())
	_, err := client.Fetch(context.Background(), pageURL(srv.URL(), 1))

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeStatus, errs.TypeOf(err))
	assert.Equal(t, 404, errs.StatusOf(err))
	assert.Equal(t, 1, srv.RequestCount())
}

func TestFetchNetworkError(t *testing.T) {
	srv := testserver.New()
	base := srv.URL()
	srv.Close()

	client := NewClient(5*time.Second, logger.NewNopLogger())
	_, err := client.Fetch(context.Background(), pageURL(base, 1))

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestFetchTimeout(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetDelay(1, 2*time.Second)

	client := NewClient(50*time.Millisecond, logger.NewNopLogger())
	_, err := client.Fetch(context.Background(), pageURL(srv.URL(), 1))

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeTimeout, errs.TypeOf(err))
}

func TestFetchInterrupted(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetDelay(1, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	client := NewClient(5*time.Second, logger.NewNopLogger())
	_, err := client.Fetch(ctx, pageURL(srv.URL(), 1))

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeInterrupted, errs.TypeOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "<empty body>", preview(nil))
	long := bytes.Repeat([]byte("x"), 300)
	assert.Len(t, preview(long), bodyPreviewLen+3)
}
