package core

import (
	"context"
	"log"
	"time"
)

// Logger receives structured-ish operational messages from the service. The
// default is a no-op; deployments plug in whatever sink they run.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan ends a span, recording the operation's terminal error if any.
type TraceSpan interface {
	End(err error)
}

// Clock supplies the service's notion of now.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// NoopLogger returns a logger that discards everything.
func NoopLogger() Logger { return noopLogger{} }

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// StdLogger adapts the standard library logger to the Logger interface, with
// a level prefix per line.
type StdLogger struct {
	L *log.Logger
}

func (s StdLogger) printf(level, format string, args ...any) {
	target := s.L
	if target == nil {
		target = log.Default()
	}
	target.Printf(level+" "+format, args...)
}

// Debugf implements Logger.
func (s StdLogger) Debugf(format string, args ...any) { s.printf("DEBUG", format, args...) }

// Infof implements Logger.
func (s StdLogger) Infof(format string, args ...any) { s.printf("INFO", format, args...) }

// Warnf implements Logger.
func (s StdLogger) Warnf(format string, args ...any) { s.printf("WARN", format, args...) }

// Errorf implements Logger.
func (s StdLogger) Errorf(format string, args ...any) { s.printf("ERROR", format, args...) }
