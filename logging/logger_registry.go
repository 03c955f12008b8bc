package logging

import (
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

type registeredLogger struct {
	logger Logger
	// initial is the level the logger had when registered, restored when no pattern matches.
	initial zapcore.Level
}

// Registry tracks named loggers so their levels can be changed by name.
type Registry struct {
	mu        sync.RWMutex
	loggers   map[string]registeredLogger
	logConfig []LoggerPatternConfig
}

var globalLoggerRegistry = newRegistry()

func newRegistry() *Registry {
	return &Registry{
		loggers: make(map[string]registeredLogger),
	}
}

// registerLogger adds logger under name, replacing any previous one, and applies the current
// patterns to it.
func (lr *Registry) registerLogger(name string, logger Logger) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = registeredLogger{logger: logger, initial: logger.Level()}
	if level, ok := levelFor(name, lr.logConfig); ok {
		logger.SetLevel(level)
	}
}

func (lr *Registry) loggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	entry, ok := lr.loggers[name]
	return entry.logger, ok
}

// Update applies logConfig to every registered logger. Later patterns win over earlier ones;
// loggers no pattern matches go back to their initial level. Invalid patterns are skipped with a
// warning on errorLogger.
func (lr *Registry) Update(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	valid := make([]LoggerPatternConfig, 0, len(logConfig))
	for _, lpc := range logConfig {
		if err := lpc.Validate("log"); err != nil {
			errorLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern, "error", err)
			continue
		}
		valid = append(valid, lpc)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.logConfig = valid
	for name, entry := range lr.loggers {
		level, ok := levelFor(name, valid)
		if !ok {
			level = entry.initial
		}
		entry.logger.SetLevel(level)
	}
	return nil
}

// levelFor returns the level of the last pattern matching name. Patterns are already validated.
func levelFor(name string, logConfig []LoggerPatternConfig) (zapcore.Level, bool) {
	var (
		level   zapcore.Level
		matched bool
	)
	for _, lpc := range logConfig {
		if !regexp.MustCompile(buildRegexFromPattern(lpc.Pattern)).MatchString(name) {
			continue
		}
		parsed, err := zapcore.ParseLevel(strings.ToLower(lpc.Level))
		if err != nil {
			continue
		}
		level, matched = parsed, true
	}
	return level, matched
}

// RegisterLogger registers a logger under name in the global registry.
func RegisterLogger(name string, logger Logger) {
	globalLoggerRegistry.registerLogger(name, logger)
}

// UpdateLoggerLevels applies level patterns to every registered logger, including those created
// later.
func UpdateLoggerLevels(logConfig []LoggerPatternConfig) error {
	return globalLoggerRegistry.Update(logConfig, Global())
}
