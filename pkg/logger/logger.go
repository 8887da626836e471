package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"geckofetcher/pkg/config"
)

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	// GetZerolog exposes the underlying zerolog instance
	GetZerolog() *zerolog.Logger
}

type zerologLogger struct {
	logger *zerolog.Logger
	fields map[string]interface{}
}

// New creates a console logger writing to stderr at the configured level.
// An unrecognised level falls back to INFO and is reported as a warning.
func New(cfg *config.LoggingConfig) Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(cfg *config.LoggingConfig, out io.Writer) Logger {
	level, ok := ParseLevel(cfg.Level)

	zerolog.TimeFieldFormat = time.RFC3339
	output := zerolog.ConsoleWriter{
		Out:         out,
		NoColor:     true,
		TimeFormat:  "15:04:05",
		FormatLevel: formatLevel,
	}

	zlog := zerolog.New(output).Level(level).With().Timestamp().Logger()
	l := &zerologLogger{logger: &zlog, fields: map[string]interface{}{}}

	if !ok {
		l.WithField("loglevel", cfg.Level).Warn("Unknown LOGLEVEL, using INFO")
	}
	return l
}

// formatLevel renders levels as a bracketed initial: [D] [I] [W] [E] [C]
func formatLevel(i interface{}) string {
	s, _ := i.(string)
	switch s {
	case zerolog.LevelDebugValue, zerolog.LevelTraceValue:
		return "[D]"
	case zerolog.LevelInfoValue:
		return "[I]"
	case zerolog.LevelWarnValue:
		return "[W]"
	case zerolog.LevelErrorValue:
		return "[E]"
	case zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		return "[C]"
	default:
		return "[?]"
	}
}

// ParseLevel maps a LOGLEVEL value to a zerolog level. The names follow the
// conventional DEBUG/INFO/WARNING/ERROR/CRITICAL set; empty means INFO. The
// second result is false when the name was not recognised.
func ParseLevel(level string) (zerolog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel, true
	case "", "INFO":
		return zerolog.InfoLevel, true
	case "WARN", "WARNING":
		return zerolog.WarnLevel, true
	case "ERROR":
		return zerolog.ErrorLevel, true
	case "CRITICAL", "FATAL":
		return zerolog.FatalLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

func (l *zerologLogger) Debug(msg string) {
	l.addFields(l.logger.Debug()).Msg(msg)
}

func (l *zerologLogger) Info(msg string) {
	l.addFields(l.logger.Info()).Msg(msg)
}

func (l *zerologLogger) Warn(msg string) {
	l.addFields(l.logger.Warn()).Msg(msg)
}

func (l *zerologLogger) Error(msg string) {
	l.addFields(l.logger.Error()).Msg(msg)
}

// WithFields returns a child logger carrying the merged fields
func (l *zerologLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &zerologLogger{logger: l.logger, fields: merged}
}

func (l *zerologLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *zerologLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *zerologLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	addMap(l.addFields(l.logger.Debug()), fields).Msg(msg)
}

func (l *zerologLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	addMap(l.addFields(l.logger.Info()), fields).Msg(msg)
}

func (l *zerologLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	addMap(l.addFields(l.logger.Warn()), fields).Msg(msg)
}

func (l *zerologLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	addMap(l.addFields(l.logger.Error()), fields).Msg(msg)
}

func (l *zerologLogger) GetZerolog() *zerolog.Logger {
	return l.logger
}

func (l *zerologLogger) addFields(event *zerolog.Event) *zerolog.Event {
	return addMap(event, l.fields)
}

func addMap(event *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	for key, value := range fields {
		event = addFieldToEvent(event, key, value)
	}
	return event
}

// addFieldToEvent adds a single field to a zerolog event with type checking
func addFieldToEvent(event *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return event.Str(key, v)
	case int:
		return event.Int(key, v)
	case int64:
		return event.Int64(key, v)
	case float64:
		return event.Float64(key, v)
	case bool:
		return event.Bool(key, v)
	case time.Time:
		return event.Time(key, v)
	case time.Duration:
		return event.Str(key, v.String())
	case error:
		return event.AnErr(key, v)
	case []string:
		return event.Strs(key, v)
	case []int:
		return event.Ints(key, v)
	case fmt.Stringer:
		return event.Stringer(key, v)
	default:
		return event.Interface(key, v)
	}
}

var globalLogger Logger

// Initialize sets up the global logger from cfg
func Initialize(cfg *config.LoggingConfig) Logger {
	globalLogger = New(cfg)
	log.Logger = *globalLogger.GetZerolog()
	return globalLogger
}

// GetLogger returns the global logger, creating an INFO logger on first use
func GetLogger() Logger {
	if globalLogger == nil {
		globalLogger = New(&config.LoggingConfig{Level: "INFO"})
	}
	return globalLogger
}

// SetLogger replaces the global logger
func SetLogger(l Logger) {
	globalLogger = l
}
