package logger

import (
	"context"
	"fmt"
	multi "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

type Logger interface {
	SetLogLevel(levelStr string)
	GetLogLevel() string

	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
	Fatal(msg string, err error, args ...any)
}

// Options describes where log records go. Zero values fall back to the
// defaults below. NoFile drops the rotated JSON copy.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	NoFile     bool

	Console io.Writer // text output, os.Stdout when nil
	exit    func(code int)
}

const (
	defaultLogFile    = "logs/main.log"
	defaultMaxSizeMB  = 64
	defaultMaxBackups = 16
	defaultMaxAgeDays = 14
)

var levelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

var levelsByName = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
	"fatal": LevelFatal,
}

type SlogLogger struct {
	log   *slog.Logger
	level *slog.LevelVar
	exit  func(code int)
}

// New builds a logger writing text to the console and, unless disabled,
// rotated JSON to a file.
func New(o Options) *SlogLogger {
	if o.File == "" {
		o.File = defaultLogFile
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = defaultMaxSizeMB
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = defaultMaxBackups
	}
	if o.MaxAgeDays <= 0 {
		o.MaxAgeDays = defaultMaxAgeDays
	}
	if o.Console == nil {
		o.Console = os.Stdout
	}
	if o.exit == nil {
		o.exit = os.Exit
	}

	l := &SlogLogger{level: &slog.LevelVar{}, exit: o.exit}
	l.level.Set(slog.LevelInfo)

	opts := &slog.HandlerOptions{
		AddSource:   true,
		Level:       l.level,
		ReplaceAttr: replaceAttr,
	}

	handlers := []slog.Handler{slog.NewTextHandler(o.Console, opts)}
	if !o.NoFile {
		handlers = append(handlers, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   true,
		}, opts))
	}
	l.log = slog.New(multi.Fanout(handlers...))

	return l
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		if level, ok := a.Value.Any().(slog.Level); ok {
			if name, custom := levelNames[level]; custom {
				a.Value = slog.StringValue(name)
			}
		}
	case slog.SourceKey:
		a.Value = slog.StringValue(callerOutsideLogger(10))
	}
	return a
}

// SetLogLevel falls back to info for unknown names.
func (l *SlogLogger) SetLogLevel(levelStr string) {
	level, ok := levelsByName[strings.ToLower(levelStr)]
	if !ok {
		level = slog.LevelInfo
	}
	l.level.Set(level)
}

func (l *SlogLogger) GetLogLevel() string {
	current := l.level.Level()
	for name, level := range levelsByName {
		if level == current {
			return name
		}
	}
	return "info"
}

func (l *SlogLogger) Trace(msg string, args ...any) {
	l.log.Log(context.Background(), LevelTrace, msg, args...)
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.log.Debug(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.log.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, err error, args ...any) {
	l.log.Error(msg, withError(err, args)...)
}

// Fatal logs and exits with status 1.
func (l *SlogLogger) Fatal(msg string, err error, args ...any) {
	l.log.Log(context.Background(), LevelFatal, msg, withError(err, args)...)
	l.exit(1)
}

func withError(err error, args []any) []any {
	if err == nil {
		return args
	}
	return append([]any{slog.String("error", err.Error())}, args...)
}

func callerOutsideLogger(skip int) string {
	for i := skip; ; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if !strings.Contains(file, "logger") {
			return fmt.Sprintf("%s:%d", file, line)
		}
	}
	return "unknown"
}
