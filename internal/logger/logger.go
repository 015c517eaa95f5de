package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global SugaredLogger instance.
// Initialized with a no-op logger until Initialize is called.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Initialize sets up the global logger with the given log level.
// When debug is true a human readable development encoder is used.
func Initialize(level string, debug bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.InitialFields = map[string]interface{}{"service": "culinary-connect"}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = logger.Sugar()
	return nil
}

// Sync flushes buffered log entries. Errors from syncing stdout/stderr are ignored.
func Sync() {
	if err := Log.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") {
		Log.Debugw("logger sync failed", "error", err)
	}
}

// OneLine collapses a multi-line SQL statement into a single line for logging.
func OneLine(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
