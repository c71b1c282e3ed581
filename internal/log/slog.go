package log

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	stdout = os.Stdout
	stderr = os.Stderr
)

// AsSlog exposes the logger as a *slog.Logger for libraries that expect one.
func (l *Logger) AsSlog() *slog.Logger {
	return slog.New(&slogHandler{l: l})
}

type slogHandler struct {
	l     *Logger
	attrs []Field
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.l.level.Enabled(slogLevel(level))
}

func (h *slogHandler) Handle(ctx context.Context, record slog.Record) error {
	fields := make([]Field, 0, record.NumAttrs()+len(h.attrs))
	fields = append(fields, h.attrs...)

	record.Attrs(func(attr slog.Attr) bool {
		fields = append(fields, zap.Any(attr.Key, attr.Value.Any()))
		return true
	})

	switch {
	case record.Level >= slog.LevelError:
		h.l.Error(ctx, record.Message, fields...)
	case record.Level >= slog.LevelWarn:
		h.l.Warn(ctx, record.Message, fields...)
	case record.Level >= slog.LevelInfo:
		h.l.Info(ctx, record.Message, fields...)
	default:
		h.l.Debug(ctx, record.Message, fields...)
	}

	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]Field, 0, len(h.attrs)+len(attrs))
	fields = append(fields, h.attrs...)

	for _, attr := range attrs {
		fields = append(fields, zap.Any(attr.Key, attr.Value.Any()))
	}

	return &slogHandler{l: h.l, attrs: fields}
}

func (h *slogHandler) WithGroup(_ string) slog.Handler {
	return h
}

func slogLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
