package retry

import (
	"errors"
	"io"
	"net/http"
	"time"

	errs "geckofetcher/pkg/errors"
	"geckofetcher/pkg/logger"
)

// DefaultMaxAttempts is the total number of tries per request
const DefaultMaxAttempts = 3

// idempotentMethods are the only methods the transport will repeat
var idempotentMethods = map[string]bool{
	http.MethodHead:    true,
	http.MethodGet:     true,
	http.MethodOptions: true,
}

// drainLimit bounds how much of a discarded body is read so the connection
// can be reused
const drainLimit = 64 << 10

var errBodyNotRewindable = errors.New("request body cannot be replayed")

// Transport is an http.RoundTripper that repeats idempotent requests whose
// response status is transient (429, 500, 502, 503, 504). Transport-level
// failures are returned as-is without another attempt. When the last attempt
// still answers with a transient status the response is discarded and an
// *ExhaustedError wrapping an *errors.Error carrying the status is returned.
type Transport struct {
	Base        http.RoundTripper
	MaxAttempts int
	Backoff     BackoffStrategy
	Logger      logger.Logger
}

// NewTransport wraps base with the default policy: three attempts, no delay
func NewTransport(base http.RoundTripper, log logger.Logger) *Transport {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Transport{
		Base:        base,
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     ConstantBackoff{},
		Logger:      log,
	}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if !idempotentMethods[req.Method] {
		return base.RoundTrip(req)
	}

	cfg := &Config{
		MaxAttempts: t.MaxAttempts,
		Backoff:     t.Backoff,
		RetryIf:     DefaultRetryIf,
		Context:     req.Context(),
		Logger:      t.Logger,
	}
	if t.Logger != nil {
		cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
			t.Logger.WarnWithFields("Transient response, retrying", map[string]interface{}{
				"url":     req.URL.String(),
				"attempt": attempt,
				"status":  errs.StatusOf(err),
			})
		}
	}

	attempt := 0
	return DoWithResult(func() (*http.Response, error) {
		attempt++
		r, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := base.RoundTrip(r)
		if err != nil {
			return nil, err
		}
		if !errs.IsRetryableStatusCode(resp.StatusCode) {
			return resp, nil
		}

		discard(resp)
		return nil, &errs.Error{
			Type:    errs.TypeForStatus(resp.StatusCode),
			Code:    resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
		}
	}, cfg)
}

// rewind returns the request to send on the given attempt. Requests with a
// body need GetBody to be repeated.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotRewindable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}
