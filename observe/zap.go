package observe

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapLogger is a Logger backed by zap.
type ZapLogger struct {
	base *zap.Logger
}

// NewZapLogger builds a zap-backed Logger from cfg. When cfg.File is set the
// output goes to a size-rotated file, otherwise to stderr.
func NewZapLogger(cfg LoggingConfig) (*ZapLogger, error) {
	level, err := zapcore.ParseLevel(ParseLogLevel(cfg.Level).String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if cfg.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	return NewZapLoggerFrom(zap.New(core)), nil
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(base *zap.Logger) *ZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{base: base}
}

func (z *ZapLogger) Info(_ context.Context, msg string, fields ...Field) {
	z.base.Info(msg, zapFields(fields)...)
}

func (z *ZapLogger) Warn(_ context.Context, msg string, fields ...Field) {
	z.base.Warn(msg, zapFields(fields)...)
}

func (z *ZapLogger) Error(_ context.Context, msg string, fields ...Field) {
	z.base.Error(msg, zapFields(fields)...)
}

func (z *ZapLogger) Debug(_ context.Context, msg string, fields ...Field) {
	z.base.Debug(msg, zapFields(fields)...)
}

// WithProbe returns a child logger carrying probe name and tags.
func (z *ZapLogger) WithProbe(meta ProbeMeta) Logger {
	fs := []zap.Field{zap.String("probe.name", meta.Name)}
	if len(meta.Tags) > 0 {
		fs = append(fs, zap.Strings("probe.tags", meta.Tags))
	}
	return &ZapLogger{base: z.base.With(fs...)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.base.Sync()
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, fieldValue(f)))
	}
	return out
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

var _ Logger = (*ZapLogger)(nil)
