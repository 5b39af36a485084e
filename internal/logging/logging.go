// Package logging provides categorized logging for veritas.
// Every subsystem logs through Get(category), which hands out zap sugared
// loggers tagged with the category name. Before Initialize is called all
// loggers are no-ops, so library code never has to nil-check.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup and configuration
	CategoryServer    Category = "server"    // HTTP transport
	CategorySwarm     Category = "swarm"     // Orchestrator and agent steps
	CategoryBridge    Category = "bridge"    // Stream bridge lifecycle
	CategoryInference Category = "inference" // LLM API calls
	CategorySearch    Category = "search"    // Web search adapter
	CategoryVideo     Category = "video"     // Video metadata and transcripts
	CategoryStore     Category = "store"     // Verdict history store
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize installs the process-wide root logger. Pass verbose=true to
// enable debug-level output. Safe to call more than once; later calls
// replace the root and drop cached category loggers.
func Initialize(verbose bool) error {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	mu.Unlock()
	return nil
}

// InitializeWith installs a caller-supplied root logger. Used by tests to
// capture output.
func InitializeWith(logger *zap.Logger) {
	mu.Lock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	mu.Unlock()
}

// Get returns the logger for a category. Returns a no-op logger until
// Initialize has been called.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	r := root
	mu.RUnlock()

	if r == nil {
		return zap.NewNop().Sugar()
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := r.Sugar().With("cat", string(category))
	loggers[category] = l
	return l
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}
