// Package logger owns the process-wide zap logger.
package logger

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop().Sugar()
)

// Init builds the global logger. level is a zap level name such as "debug";
// development switches to the console encoder. outputs replace stderr when
// given, which the terminal client needs to keep the screen clean.
func Init(level string, development bool, outputs ...string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	if len(outputs) > 0 {
		cfg.OutputPaths = outputs
		cfg.ErrorOutputPaths = outputs
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	log = l.Sugar()
	mu.Unlock()
	return nil
}

// Set replaces the global logger. Tests use it with zaptest or observer.
func Set(l *zap.SugaredLogger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

// L returns the global logger.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Named returns a child logger for a component.
func Named(name string) *zap.SugaredLogger {
	return L().Named(name)
}

// Close flushes buffered entries.
func Close() {
	_ = L().Sync()
}

// LogPanic logs a recovered panic with stack trace
func LogPanic(r any, keysAndValues ...any) {
	L().With(keysAndValues...).Errorw("panic recovered", "panic", r, "stack", string(debug.Stack()))
}
