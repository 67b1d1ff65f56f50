// Package log wraps slog with JSON output and file rotation for the
// planning server.
package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*slog.Logger
	LogFile string
	Start   time.Time
}

// New creates a logger writing JSON records to dir. If dir is empty,
// records go to stderr (useful for tests and ad hoc runs).
func New(level string, dir string) *Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "%s: invalid log level\n", level)
	}

	var l *Logger
	if dir == "" {
		h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
		l = &Logger{Logger: slog.New(h), Start: time.Now()}
	} else {
		w := &lumberjack.Logger{
			Filename: filepath.Join(dir, "planner.slog"),
			MaxSize:  32, // MB
			MaxAge:   14,
			Compress: true,
		}
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
		l = &Logger{Logger: slog.New(h), LogFile: w.Filename, Start: time.Now()}
	}

	l.Info("Hello logging",
		slog.Time("start", l.Start),
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))

	return l
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	h := slog.NewJSONHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return &Logger{Logger: slog.New(h), Start: time.Now()}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
