// Package ratelimit paces requests to the upstream markets API.
//
// Pacing is off by default. When requests_per_minute is set the fetcher
// waits on a golang.org/x/time/rate token bucket before every page request:
//
//	limiter := ratelimit.New(cfg.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit
