// Package logging provides categorized structured logging for factlex,
// backed by zap. The default logger is a nop so library use stays silent;
// the CLI installs a real logger at startup.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names the subsystem a log line belongs to. It becomes the zap
// logger name, so per-category filtering works downstream.
type Category string

const (
	CategoryLexer   Category = "lexer"   // tokenization, chunk resumption
	CategoryExtract Category = "extract" // token -> fact extraction
	CategoryCache   Category = "cache"   // fact cache hits/evictions
	CategoryQuery   Category = "query"   // index builds, query execution
	CategoryStore   Category = "store"   // sqlite persistence
	CategorySession Category = "session" // per-file analysis sessions
	CategoryWatch   Category = "watch"   // filesystem watcher
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	sugared = map[Category]*zap.SugaredLogger{}
)

// Init builds and installs a process-wide logger. verbose enables debug
// level, jsonFormat switches from console to JSON encoding.
func Init(verbose, jsonFormat bool) error {
	cfg := zap.NewProductionConfig()
	if !jsonFormat {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the process-wide logger. Tests install zaptest
// loggers through this.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	sugared = map[Category]*zap.SugaredLogger{}
}

// Get returns the sugared logger for a category.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	if s, ok := sugared[c]; ok {
		mu.RUnlock()
		return s
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if s, ok := sugared[c]; ok {
		return s
	}
	s := root.Named(string(c)).Sugar()
	sugared[c] = s
	return s
}

// Sync flushes buffered log entries. Called once at process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
