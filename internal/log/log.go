package log

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a zap.Logger with context-aware hooks.
type Logger struct {
	zl    *zap.Logger
	level zap.AtomicLevel

	mu    sync.RWMutex
	hooks []Hook
}

func New(cfg Config) *Logger {
	cfg = cfg.withDefaults()

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	if cfg.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	ws := zapcore.NewMultiWriteSyncer(syncers(cfg)...)
	core := zapcore.NewCore(enc, ws, level)

	zl := zap.New(core, zap.AddCallerSkip(2))
	if cfg.Name != "" {
		zl = zl.Named(cfg.Name)
	}

	return &Logger{
		zl:    zl,
		level: level,
	}
}

func syncers(cfg Config) []zapcore.WriteSyncer {
	out := make([]zapcore.WriteSyncer, 0, len(cfg.Outputs))

	for _, o := range cfg.Outputs {
		switch o {
		case "stdout":
			out = append(out, zapcore.Lock(zapcore.AddSync(stdout)))
		case "stderr":
			out = append(out, zapcore.Lock(zapcore.AddSync(stderr)))
		default:
			out = append(out, zapcore.AddSync(&lumberjack.Logger{
				Filename:   o,
				MaxSize:    cfg.File.MaxSize,
				MaxBackups: cfg.File.MaxBackups,
				MaxAge:     cfg.File.MaxAge,
				Compress:   cfg.File.Compress,
			}))
		}
	}

	return out
}

// AddHook registers a hook that may append fields from the context.
func (l *Logger) AddHook(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hooks = append(l.hooks, h)
}

func (l *Logger) applyHooks(ctx context.Context, msg string, fields []Field) []Field {
	l.mu.RLock()
	hooks := l.hooks
	l.mu.RUnlock()

	for _, h := range hooks {
		fields = h.Apply(ctx, msg, fields...)
	}

	return fields
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.zl.Debug(msg, l.applyHooks(ctx, msg, fields)...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...Field) {
	l.zl.Info(msg, l.applyHooks(ctx, msg, fields)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.zl.Warn(msg, l.applyHooks(ctx, msg, fields)...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...Field) {
	l.zl.Error(msg, l.applyHooks(ctx, msg, fields)...)
}

func (l *Logger) DebugEnabled() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

func (l *Logger) Sync() error {
	return l.zl.Sync()
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(Config{}))
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

// SetGlobalConfig rebuilds the default logger from the given config.
func SetGlobalConfig(cfg Config) {
	defaultLogger.Store(New(cfg))
}

func GetGlobalLogger() *Logger {
	return defaultLogger.Load()
}

func Debug(ctx context.Context, msg string, fields ...Field) {
	defaultLogger.Load().Debug(ctx, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...Field) {
	defaultLogger.Load().Info(ctx, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...Field) {
	defaultLogger.Load().Warn(ctx, msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...Field) {
	defaultLogger.Load().Error(ctx, msg, fields...)
}

func DebugEnabled(ctx context.Context) bool {
	return defaultLogger.Load().DebugEnabled()
}
