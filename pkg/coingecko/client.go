package coingecko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	errs "geckofetcher/pkg/errors"
	"geckofetcher/pkg/logger"
	"geckofetcher/pkg/retry"
)

// bodyPreviewLen bounds how much of an error body ends up in a message
const bodyPreviewLen = 200

// Client fetches raw documents from the markets API. One Client, and so one
// connection pool, serves every request of every cycle.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a client whose requests time out after timeout and are
// retried by retry.Transport
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	return NewClientWithHTTP(&http.Client{
		Transport: retry.NewTransport(base, log),
		Timeout:   timeout,
	}, log)
}

// NewClientWithHTTP wraps an existing http.Client as-is
func NewClientWithHTTP(hc *http.Client, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient: hc,
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "geckofetcher",
		},
		logger: log,
	}
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Fetch performs a GET on url and returns the body of a 2xx response
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		failure := classify(ctx, err)
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":         url,
			"type":        string(failure.Type),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, failure
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))
	if err != nil {
		failure := classify(ctx, err)
		failure.Code = resp.StatusCode
		failure.Message = "failed to read response body"
		return nil, failure
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errs.Error{
			Type:    errs.TypeForStatus(resp.StatusCode),
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("unexpected status: %s", preview(body)),
		}
	}

	return body, nil
}

// classify turns an error from http.Client.Do or a body read into a typed
// error. Retry exhaustion keeps the status type assigned by the transport.
func classify(ctx context.Context, err error) *errs.Error {
	var typed *errs.Error
	if errors.As(err, &typed) {
		return &errs.Error{
			Type:    typed.Type,
			Code:    typed.Code,
			Message: "retries exhausted",
			Err:     err,
		}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return errs.Wrap(errs.ErrorTypeInterrupted, "request interrupted", err)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrorTypeTimeout, "request timed out", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return errs.Wrap(errs.ErrorTypeTimeout, "request timed out", err)
	default:
		return errs.Wrap(errs.ErrorTypeNetwork, "request failed", err)
	}
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > bodyPreviewLen {
		s = s[:bodyPreviewLen] + "..."
	}
	if s == "" {
		s = "<empty body>"
	}
	return s
}
