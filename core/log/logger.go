// Package log builds the zap loggers used across dualfs and sanitizes the
// values that end up in them.
package log

import (
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/config"
)

// NewLogger creates a zap logger based on configuration
func NewLogger(logCfg config.LogConfig) (*zap.Logger, error) {
	var cfg zap.Config

	if logCfg.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch logCfg.Level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Diagnostics go to stderr so command output stays clean
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}
