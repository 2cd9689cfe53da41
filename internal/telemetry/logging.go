package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel переводит DEBUG, INFO, WARN или ERROR (без учёта регистра) в slog.Level.
// Неизвестное значение даёт INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogLevel возвращает уровень из LOG_LEVEL.
func LogLevel() slog.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// LoggerConfig — настройки логгера сервиса.
type LoggerConfig struct {
	// Service добавляется в каждую запись как service=<имя>.
	Service string

	Level slog.Level

	// Format — "json" или "text".
	Format string

	Output io.Writer
}

// LoggerConfigFromEnv собирает настройки из LOG_LEVEL и LOG_FORMAT.
// Логи сервисов пишутся в stdout.
func LoggerConfigFromEnv(service string) LoggerConfig {
	return LoggerConfig{
		Service: service,
		Level:   LogLevel(),
		Format:  os.Getenv("LOG_FORMAT"),
		Output:  os.Stdout,
	}
}

// Build создаёт логгер. На уровне DEBUG в записи добавляется источник.
func (c LoggerConfig) Build() *slog.Logger {
	out := c.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     c.Level,
		AddSource: c.Level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(c.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	if c.Service != "" {
		logger = logger.With("service", c.Service)
	}
	return logger
}

// SetupLogger создаёт логгер сервиса из окружения и делает его глобальным.
func SetupLogger(service string) *slog.Logger {
	logger := LoggerConfigFromEnv(service).Build()
	slog.SetDefault(logger)
	return logger
}

// NewLogger — логгер без имени сервиса с уровнем из LOG_LEVEL.
func NewLogger(w io.Writer, format string) *slog.Logger {
	return LoggerConfig{Level: LogLevel(), Format: format, Output: w}.Build()
}

type ctxKey struct{}

// WithLogger кладёт логгер запроса в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext достаёт логгер из контекста, без него — slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	return LoggerOr(ctx, slog.Default())
}

// LoggerOr достаёт логгер из контекста, без него — fallback.
func LoggerOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return fallback
}

// WithProjectID добавляет project_id.
func WithProjectID(logger *slog.Logger, projectID string) *slog.Logger {
	return logger.With("project_id", projectID)
}

// WithAnalysisID добавляет analysis_id.
func WithAnalysisID(logger *slog.Logger, analysisID string) *slog.Logger {
	return logger.With("analysis_id", analysisID)
}
