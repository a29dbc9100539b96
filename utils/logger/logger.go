package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures Init.
type Options struct {
	// Level is a level name ("debug", "info", "warn", "error"); empty reads LOG_LEVEL.
	Level string
	// EnableOTel additionally exports records through the global OTel logger provider.
	EnableOTel bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

// Init builds the process logger, installs it as the slog default and
// returns it. Stdout output is JSON enriched with trace and request context.
func Init(opts Options) *slog.Logger {
	levelName := opts.Level
	if levelName == "" {
		levelName = os.Getenv("LOG_LEVEL")
	}
	level := parseLevel(levelName)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler = NewTraceContextHandler(
		slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}),
	)
	if opts.EnableOTel {
		handler = NewMultiHandler(handler, NewOTelHandler(level))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
