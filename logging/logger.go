// Package logging provides the leveled logger used throughout the
// consensus engine. It wraps go.uber.org/zap behind a small
// geth-style interface so call sites never import zap directly.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled logging interface every component depends on.
type Logger interface {
	Trace(msg string, kv ...interface{})
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	Crit(msg string, kv ...interface{})

	// With returns a child logger with the given key/value pairs bound
	// to every subsequent call.
	With(kv ...interface{}) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New returns a production logger writing JSON to stderr at the given
// level ("trace", "debug", "info", "warn", "error", "crit").
func New(level string) Logger {
	zl := zapcore.InfoLevel
	switch level {
	case "trace", "debug":
		zl = zapcore.DebugLevel
	case "warn":
		zl = zapcore.WarnLevel
	case "error":
		zl = zapcore.ErrorLevel
	case "crit":
		zl = zapcore.FatalLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		// Fall back to a basic core rather than panicking; logging
		// must never take down the engine.
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			zl,
		)
		l = zap.New(core)
	}
	return &zapLogger{sugar: l.Sugar()}
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func (z *zapLogger) Trace(msg string, kv ...interface{}) { z.sugar.Debugw(msg, kv...) }
func (z *zapLogger) Debug(msg string, kv ...interface{}) { z.sugar.Debugw(msg, kv...) }
func (z *zapLogger) Info(msg string, kv ...interface{})  { z.sugar.Infow(msg, kv...) }
func (z *zapLogger) Warn(msg string, kv ...interface{})  { z.sugar.Warnw(msg, kv...) }
func (z *zapLogger) Error(msg string, kv ...interface{}) { z.sugar.Errorw(msg, kv...) }
func (z *zapLogger) Crit(msg string, kv ...interface{})  { z.sugar.Errorw(msg, kv...) }

func (z *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{sugar: z.sugar.With(kv...)}
}

var (
	defaultOnce sync.Once
	defaultLog  Logger
)

// Default returns a process-wide nop-safe logger for call sites that
// are not handed one explicitly (e.g. package-level helpers used only
// by tests).
func Default() Logger {
	defaultOnce.Do(func() {
		defaultLog = NewNop()
	})
	return defaultLog
}
