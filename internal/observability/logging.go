// Package observability holds the ambient logging and metrics plumbing shared
// by the runtime, the adapters, and the tools.
package observability

import (
	"io"
	"log/slog"
	"math"
	"os"
	"regexp"
	"strings"
)

// LogConfig configures logger construction.
type LogConfig struct {
	// Level is one of debug, info, warn, error, fatal, silent.
	// Empty falls back to the LOG_LEVEL env var, then to "info".
	Level string

	// Format is "json" or "text" (default).
	Format string

	// Output defaults to stderr. Stdout is reserved for protocol traffic
	// (the MCP bridge owns it).
	Output io.Writer
}

// redactPatterns matches common credential shapes in log output.
var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{16,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{16,}`),
	regexp.MustCompile(`xox[baprs]-[a-zA-Z0-9-]{10,}`),
}

// Redact masks credential-shaped substrings.
func Redact(s string) string {
	for _, re := range redactPatterns {
		s = re.ReplaceAllString(s, "[redacted]")
	}
	return s
}

// ParseLevel maps a level name to a slog level. "fatal" maps above error and
// "silent" disables output entirely.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal":
		return slog.LevelError + 4
	case "silent":
		return slog.Level(math.MaxInt32)
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a slog.Logger per the config.
func NewLogger(cfg LogConfig) *slog.Logger {
	level := cfg.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}
