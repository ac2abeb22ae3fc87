// Package logging provides structured logging shared across every layer of
// the aggregation engine. It wraps logrus the way the teacher's
// infrastructure/logging package does, adding a service name and optional
// trace-ID enrichment instead of constructing loggers ad hoc per package.
package logging

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// Config controls level/format/output of a Logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // "json" or "text"
	Output string // "stdout" (default) or "stderr"
}

// DefaultConfig returns the logger defaults used when none are supplied.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text", Output: "stdout"}
}

// Logger wraps *logrus.Logger with a fixed service name.
type Logger struct {
	*logrus.Logger
	service string
}

// New constructs a Logger for the given service name.
func New(service string, cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if strings.EqualFold(cfg.Output, "stderr") {
		l.SetOutput(os.Stderr)
	} else {
		l.SetOutput(os.Stdout)
	}

	return &Logger{Logger: l, service: service}
}

// WithTraceID returns a context carrying the given trace ID for log
// enrichment via EntryFromContext.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext extracts a trace ID previously set with WithTraceID.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	return v, ok && v != ""
}

// EntryFromContext returns a log entry pre-populated with the service name
// and, when present, the trace ID carried on ctx.
func (l *Logger) EntryFromContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{"service": l.service}
	if traceID, ok := TraceIDFromContext(ctx); ok {
		fields["trace_id"] = traceID
	}
	return l.WithFields(fields)
}

// Component returns a child entry tagged with the given component name,
// for the cache/resilience/client/aggregator/registry layers to identify
// themselves in log output.
func (l *Logger) Component(name string) *logrus.Entry {
	return l.WithFields(logrus.Fields{"service": l.service, "component": name})
}
