// Package coingecko is a minimal client for the CoinGecko markets API.
//
// Client.Fetch issues a GET and returns the raw response body. The shared
// http.Client uses retry.Transport, so transient statuses are retried before
// Fetch sees them. Every failure is an *errors.Error whose Type tells the
// caller what happened:
//
//	network      connection refused, reset, DNS failure
//	timeout      the request timeout or a deadline elapsed
//	interrupted  the request context was cancelled
//	rate_limit   429 after all attempts
//	server_error 500, 502, 503 or 504 after all attempts
//	status       any other non-2xx status
//
// MarketsURL builds the /coins/markets URL for a page.
package coingecko
