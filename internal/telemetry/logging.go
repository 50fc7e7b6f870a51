package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// parseLevel разбирает LOG_LEVEL (без учёта регистра); по умолчанию INFO.
func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger инициализирует глобальный логгер процесса.
//
// LOG_FORMAT: "json" (по умолчанию, production) или "text" (разработка).
// LOG_LEVEL: DEBUG / INFO / WARN / ERROR; на DEBUG добавляется source.
//
// service добавляется атрибутом ко всем записям: процессы api /
// dispatcher / janitor пишут в один лог-поток.
func SetupLogger(service string) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}
