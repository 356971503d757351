// Package log builds the slog handler behind the --log-level and --log-format
// flags and carries the resulting logger through command contexts.
package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/muesli/termenv"

	charmlog "github.com/charmbracelet/log"
)

type (
	Format string
	Level  string

	contextKey struct{}
)

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
	FormatText   Format = "text"

	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")

	AllFormats = []string{string(FormatJSON), string(FormatLogfmt), string(FormatText)}
	AllLevels  = []string{string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)}

	levels = map[Level]slog.Level{
		LevelError: slog.LevelError,
		LevelWarn:  slog.LevelWarn,
		"warning":  slog.LevelWarn,
		LevelInfo:  slog.LevelInfo,
		LevelDebug: slog.LevelDebug,
	}
)

// NewHandler returns the handler for a --log-level and --log-format pair.
// Both values are case-insensitive.
func NewHandler(w io.Writer, level, format string) (slog.Handler, error) {
	lvl, ok := levels[Level(strings.ToLower(level))]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidArgument, ErrUnknownLogLevel, level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch Format(strings.ToLower(format)) {
	case FormatJSON:
		return slog.NewJSONHandler(w, opts), nil
	case FormatLogfmt:
		return slog.NewTextHandler(w, opts), nil
	case FormatText:
		return newTerminalHandler(w, lvl), nil
	}
	return nil, fmt.Errorf("%w: %w: %q", ErrInvalidArgument, ErrUnknownLogFormat, format)
}

// newTerminalHandler writes prefixed, untimestamped lines, colored only when
// w is a color-capable terminal.
func newTerminalHandler(w io.Writer, level slog.Level) slog.Handler {
	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:     charmlog.Level(level),
		Formatter: charmlog.TextFormatter,
		Prefix:    "tagrules",
	})
	logger.SetColorProfile(termenv.NewOutput(w).Profile)
	return logger
}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// WithContext returns the logger stored in ctx, or the default logger.
func WithContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
