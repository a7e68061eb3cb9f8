// Package logging configures the global slog logger for nozzle binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// NewHandler returns the handler Setup would install for w. Terminals get
// tinter output unless JSON is forced.
func NewHandler(w io.Writer, format Format, level slog.Level) slog.Handler {
	useTint := format == FormatText || (format == FormatAuto && IsTTY(w))
	if useTint {
		return tinter.NewHandler(w, &tinter.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
}

// Setup configures the global slog logger on stderr. Call once after flag/viper parsing.
func Setup(format Format, level slog.Level) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, format, level)))
}

// SetupFile configures the global slog logger to append to path. The popup
// owns the terminal, so it logs here instead of stderr. The returned closer
// must be called on exit.
func SetupFile(path string, format Format, level slog.Level) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(NewHandler(f, format, level)))
	return f, nil
}
