package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logger handed to every markernav component.
type Logger interface {
	Level() zapcore.Level
	SetLevel(level zapcore.Level)

	// Sublogger returns a logger named "<parent>.<subname>" sharing the same outputs.
	Sublogger(subname string) Logger

	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	// CDebugw and friends attach the fields stored on the context (see ContextWithFields).
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})
	CInfow(ctx context.Context, msg string, keysAndValues ...interface{})
	CWarnw(ctx context.Context, msg string, keysAndValues ...interface{})
}

// callerSkip hides impl.log and the exported method from the reported caller.
const callerSkip = 2

// impl gates entries on its own level; the zap core underneath accepts everything so subloggers
// can be more verbose than their parent.
type impl struct {
	name  string
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

func (imp *impl) Level() zapcore.Level {
	return imp.level.Level()
}

func (imp *impl) SetLevel(level zapcore.Level) {
	imp.level.SetLevel(level)
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	sub := &impl{
		name:  newName,
		level: zap.NewAtomicLevelAt(imp.level.Level()),
		sugar: imp.sugar.Named(subname),
	}
	RegisterLogger(newName, sub)
	return sub
}

func (imp *impl) log(ctx context.Context, level zapcore.Level, msg string, keysAndValues []interface{}) {
	if !imp.level.Enabled(level) {
		return
	}
	if fields := fieldsFromContext(ctx); len(fields) > 0 {
		keysAndValues = append(append([]interface{}{}, fields...), keysAndValues...)
	}
	imp.sugar.Logw(level, msg, keysAndValues...)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.log(context.Background(), zapcore.DebugLevel, msg, keysAndValues)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.log(context.Background(), zapcore.InfoLevel, msg, keysAndValues)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.log(context.Background(), zapcore.WarnLevel, msg, keysAndValues)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.log(ctx, zapcore.DebugLevel, msg, keysAndValues)
}

func (imp *impl) CInfow(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.log(ctx, zapcore.InfoLevel, msg, keysAndValues)
}

func (imp *impl) CWarnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.log(ctx, zapcore.WarnLevel, msg, keysAndValues)
}
