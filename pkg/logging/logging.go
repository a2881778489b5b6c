// Package logging builds the zap loggers used by the fsm-designer commands.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the level and destinations of a logger.
type Options struct {
	Level string   // "debug", "info", "warn" or "error"
	Paths []string // zap output paths; empty discards everything
	JSON  bool
}

// New builds a logger. With no paths it returns a no-op logger, which is
// what the terminal editor uses when no log file is configured since its
// screen owns stdout.
func New(opts Options) (*zap.Logger, error) {
	if len(opts.Paths) == 0 {
		return zap.NewNop(), nil
	}

	var cfg zap.Config
	if opts.JSON {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	cfg.OutputPaths = opts.Paths
	cfg.ErrorOutputPaths = opts.Paths
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
