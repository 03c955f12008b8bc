// Package logging contains the zap-backed loggers used throughout markernav.
package logging

import (
	"os"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var (
	globalOnce   sync.Once
	globalLogger Logger
)

// Global returns the process-wide "markernav" logger, writing Info+ entries to stdout.
func Global() Logger {
	globalOnce.Do(func() {
		globalLogger = newConsoleLogger("markernav", zap.InfoLevel)
	})
	return globalLogger
}

// newConsoleLogger registers a colored console logger under name. The zap core accepts every
// entry; level is the logger's own gate so subloggers can be more verbose.
func newConsoleLogger(name string, level zapcore.Level) Logger {
	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), zapcore.Lock(os.Stdout), zap.DebugLevel)

	logger := &impl{
		name:  name,
		level: zap.NewAtomicLevelAt(level),
		sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(callerSkip)).Sugar().Named(name),
	}
	RegisterLogger(name, logger)
	return logger
}

// NewBlankLogger returns a logger that discards everything.
func NewBlankLogger(name string) Logger {
	return &impl{name: name, level: zap.NewAtomicLevelAt(zap.DebugLevel), sugar: zap.NewNop().Sugar()}
}

// NewTestLogger returns a logger writing Debug+ entries to the test output.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is NewTestLogger that also keeps the entries in memory.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.DebugLevel)
	testLogger := zaptest.NewLogger(tb, zaptest.Level(zap.DebugLevel), zaptest.WrapOptions(
		zap.AddCaller(),
		zap.AddCallerSkip(callerSkip),
		zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, observerCore)
		}),
	))
	return &impl{level: zap.NewAtomicLevelAt(zap.DebugLevel), sugar: testLogger.Sugar()}, observedLogs
}
