package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed HTTP exchange at a level matching its status
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	default:
		l.WarnWithFields("HTTP request client error", fields)
	}
}

// LogPageFailure reports a page that contributed no entries
func LogPageFailure(l Logger, page int, err error) {
	l.WithError(err).WithField("page", page).Warn("Page skipped")
}

// LogCycle logs the summary of a fetch-and-persist cycle
func LogCycle(l Logger, cycleID string, entries int, failedPages []int, duration time.Duration) {
	fields := map[string]interface{}{
		"cycle_id":    cycleID,
		"entries":     entries,
		"duration_ms": duration.Milliseconds(),
	}
	if len(failedPages) > 0 {
		fields["failed_pages"] = failedPages
		l.WarnWithFields("Cycle finished with failed pages", fields)
		return
	}
	l.InfoWithFields("Cycle finished", fields)
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
