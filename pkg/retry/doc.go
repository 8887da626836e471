// Package retry provides bounded retry for transient upstream failures.
//
// Do and DoWithResult run an operation up to Config.MaxAttempts times,
// retrying only errors accepted by Config.RetryIf. DefaultRetryIf accepts
// rate limit and server errors from package errors and nothing else.
//
// Transport applies the same loop to HTTP: idempotent requests (HEAD, GET,
// OPTIONS) answered with 429, 500, 502, 503 or 504 are sent again, up to three
// attempts in total and with no delay in between:
//
//	client := &http.Client{
//		Transport: retry.NewTransport(http.DefaultTransport, log),
//		Timeout:   30 * time.Second,
//	}
//
// Connection failures are not retried.
package retry
