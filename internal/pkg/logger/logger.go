// Package logger provides the process-wide structured logger used by
// every ring, observer and store adapter in the platform.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global      *zap.Logger
	atomicLevel zap.AtomicLevel
	once        sync.Once
)

// Init initializes the global logger. level is one of debug/info/warn/error;
// format is "json" (production) or "console" (development).
func Init(level, format string) error {
	var initErr error
	once.Do(func() {
		atomicLevel = zap.NewAtomicLevel()
		if err := atomicLevel.UnmarshalText([]byte(level)); err != nil {
			initErr = fmt.Errorf("parse log level %q: %w", level, err)
			return
		}

		var cfg zap.Config
		switch format {
		case "console":
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		default:
			cfg = zap.NewProductionConfig()
		}
		cfg.Level = atomicLevel

		built, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			initErr = fmt.Errorf("build logger: %w", err)
			return
		}
		global = built
	})
	return initErr
}

// SetLevel changes the log level at runtime.
func SetLevel(level string) error {
	return atomicLevel.UnmarshalText([]byte(level))
}

// L returns the global logger. Panics if Init has not been called.
func L() *zap.Logger {
	if global == nil {
		panic("logger.Init() must be called before logger.L()")
	}
	return global
}

// Debug logs at DebugLevel.
func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }

// Info logs at InfoLevel.
func Info(msg string, fields ...zap.Field) { L().Info(msg, fields...) }

// Warn logs at WarnLevel.
func Warn(msg string, fields ...zap.Field) { L().Warn(msg, fields...) }

// Error logs at ErrorLevel.
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// With creates a child logger with additional fields, e.g. to tag
// every log line within an invocation with tenant/schema/operation.
func With(fields ...zap.Field) *zap.Logger { return L().With(fields...) }

// Sync flushes buffered log entries; call on shutdown.
func Sync() error {
	if global == nil {
		return nil
	}
	return global.Sync()
}

// ForTest installs a no-op logger so packages can call logger.Info et
// al. from tests without requiring Init to have been called by a main.
func ForTest() {
	once.Do(func() {
		atomicLevel = zap.NewAtomicLevel()
		global = zap.NewNop()
	})
}
