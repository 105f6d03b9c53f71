package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hearthline/hearth-core/internal/infrastructure/config"
)

// serviceName appears on every record so aggregated logs from the core
// and its discovery agents stay distinguishable.
const serviceName = "hearth"

// Logger is the structured logger handed to every Hearth component. It
// embeds *slog.Logger, so it satisfies the per-package Logger interfaces
// (engine, feedback, mqtt, ...) directly.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging config: json or text format,
// stdout or stderr, level-filtered, stamped with the service name and
// build version.
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg).WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

func newHandler(cfg config.LoggingConfig) slog.Handler {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(output, opts)
	}
	return slog.NewJSONHandler(output, opts)
}

// parseLevel maps a config level string to slog, defaulting unknown
// values to info rather than failing startup over a typo.
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

// With returns a logger carrying extra default attributes. Startup uses
// it to scope each component's logger:
//
//	eng.SetLogger(log.With("component", "engine"))
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before the config file loads:
// JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
