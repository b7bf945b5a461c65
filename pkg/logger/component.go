package logger

import "log/slog"

// ComponentLogger tags every record with a component attribute and any
// fixed attributes given at construction.
type ComponentLogger struct {
	inner Logger
	attrs []any
}

func NewComponentLogger(inner Logger, component string, attrs ...any) *ComponentLogger {
	return &ComponentLogger{
		inner: inner,
		attrs: append([]any{slog.String("component", component)}, attrs...),
	}
}

func (c *ComponentLogger) with(args []any) []any {
	out := make([]any, 0, len(c.attrs)+len(args))
	out = append(out, c.attrs...)
	return append(out, args...)
}

func (c *ComponentLogger) SetLogLevel(levelStr string) { c.inner.SetLogLevel(levelStr) }

func (c *ComponentLogger) GetLogLevel() string { return c.inner.GetLogLevel() }

func (c *ComponentLogger) Trace(msg string, args ...any) { c.inner.Trace(msg, c.with(args)...) }

func (c *ComponentLogger) Debug(msg string, args ...any) { c.inner.Debug(msg, c.with(args)...) }

func (c *ComponentLogger) Info(msg string, args ...any) { c.inner.Info(msg, c.with(args)...) }

func (c *ComponentLogger) Warn(msg string, args ...any) { c.inner.Warn(msg, c.with(args)...) }

func (c *ComponentLogger) Error(msg string, err error, args ...any) {
	c.inner.Error(msg, err, c.with(args)...)
}

func (c *ComponentLogger) Fatal(msg string, err error, args ...any) {
	c.inner.Fatal(msg, err, c.with(args)...)
}
