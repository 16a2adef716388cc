// Package observability configures process-wide structured logging.
package observability

import (
	"log/slog"
	"os"
)

// SetupLogger installs the process-wide slog default for the given run
// mode. Production logs JSON at info level; dev and demo log text at debug
// level for readability.
func SetupLogger(mode string) {
	var handler slog.Handler
	switch mode {
	case "prod":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	slog.SetDefault(slog.New(handler))
}
