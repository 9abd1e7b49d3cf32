package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	logger, _, err := NewLeveledLogger(debug)
	return logger, err
}

// NewLeveledLogger is NewLogger with the level exposed, so callers can switch
// between debug and info at runtime.
func NewLeveledLogger(debug bool) (*zap.Logger, zap.AtomicLevel, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, cfg.Level, err
	}
	return logger, cfg.Level, nil
}

// SetDebug switches level between debug and info.
func SetDebug(level zap.AtomicLevel, debug bool) {
	if debug {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.InfoLevel)
}
