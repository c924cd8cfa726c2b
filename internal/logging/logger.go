package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates the application logger. It writes to stderr so stdout stays
// reserved for the MCP stdio transport, standardizes "error" to "err" and
// injects correlation values from the context.
func New(level slog.Leveler) *slog.Logger {
	return slog.New(NewCorrelationHandler(newTextHandler(os.Stderr, level)))
}

// NewWithWriter is New with an explicit destination. Pass a *slog.LevelVar to
// change the level at runtime.
func NewWithWriter(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(NewCorrelationHandler(newTextHandler(w, level)))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a config string to a slog level; unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func newTextHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	})
}
