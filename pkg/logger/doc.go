// Package logger provides the structured logging interface used across the
// fetcher.
//
// It wraps zerolog behind a small Logger interface with field support and
// writes human-readable console lines:
//
//	14:05:09 [I] Cycle finished cycle_id=... entries=1200 duration_ms=4312
//
// The level comes from the LOGLEVEL environment variable (DEBUG, INFO,
// WARNING, ERROR, CRITICAL). An empty value means INFO; an unknown value also
// means INFO and is reported once as a warning.
//
// Basic usage:
//
//	log := logger.Initialize(&config.LoggingConfig{Level: os.Getenv("LOGLEVEL")})
//	log.WithField("page", 3).Warn("Page skipped")
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
