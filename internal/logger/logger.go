package logger

import (
	"io"
	"log/slog"
	"os"

	slogotel "github.com/remychantenay/slog-otel"
)

var LogLevel = new(slog.LevelVar)

var Handler = newHandler(os.Stderr)
var Logger = slog.New(Handler)

// JSON handler wrapped so records carry the active trace and span ids
func newHandler(w io.Writer) slog.Handler {
	jsonHandler := slog.NewJSONHandler(
		w,
		&slog.HandlerOptions{AddSource: true, Level: LogLevel},
	)
	return slogotel.NewOtelHandler(slogotel.WithNoTraceEvents(true))(jsonHandler)
}

// Logger writing to `w` with the shared level, used by commands writing to their own output
func New(w io.Writer) *slog.Logger {
	return slog.New(newHandler(w))
}

func InitSlog(level slog.Level) {
	slog.SetDefault(Logger)
	LogLevel.Set(level)
}
