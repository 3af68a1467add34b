// Package logging builds the structured loggers used across papertrader.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to w at level. format is "json" or "text";
// text is the default. A nil w writes to stderr.
func New(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Setup builds a logger with New and installs it as the slog default.
func Setup(level, format string, w io.Writer) *slog.Logger {
	l := New(level, format, w)
	slog.SetDefault(l)
	return l
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// File is a rotating log file written alongside the console. An empty Path
// disables it.
type File struct {
	Path       string
	MaxSizeMB  int // rotate once the file reaches this size
	MaxAgeDays int // delete rotated files older than this
	MaxBackups int // 0 keeps every backup within MaxAgeDays
}

// Writer tees w into the rotating file. The returned closer closes the file
// and is a no-op when no file is configured.
func (f File) Writer(w io.Writer) (io.Writer, io.Closer) {
	if w == nil {
		w = os.Stderr
	}
	if f.Path == "" {
		return w, nopCloser{}
	}
	rot := &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxAge:     f.MaxAgeDays,
		MaxBackups: f.MaxBackups,
		LocalTime:  true,
	}
	return io.MultiWriter(w, rot), rot
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
