package logger

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// Logger wraps slog with JSON output. Services chain Action/With the same
// way request handlers do, so every log line carries service and action.
type Logger struct {
	l *slog.Logger
}

func New(level string) (Logger, error) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO", "":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		return Logger{}, fmt.Errorf("unknown log level: %s", level)
	}

	hostname, _ := os.Hostname()

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return Logger{
		l: slog.New(h).With("hostname", hostname),
	}, nil
}

// Action tags subsequent log lines with an action name, e.g. "db_connected".
func (lg Logger) Action(action string) Logger {
	return Logger{l: lg.l.With("action", action)}
}

func (lg Logger) With(args ...any) Logger {
	return Logger{l: lg.l.With(args...)}
}

func (lg Logger) WithGroup(name string) Logger {
	return Logger{l: lg.l.WithGroup(name)}
}

func (lg Logger) Info(msg string, args ...any) {
	lg.l.Info(msg, args...)
}

func (lg Logger) Debug(msg string, args ...any) {
	lg.l.Debug(msg, args...)
}

func (lg Logger) Warn(msg string, args ...any) {
	lg.l.Warn(msg, args...)
}

func (lg Logger) Error(msg string, err error) {
	if err == nil {
		lg.l.Error(msg)
		return
	}

	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	lg.l.Error(msg, "error", err.Error(), "stack", string(buf[:n]))
}
