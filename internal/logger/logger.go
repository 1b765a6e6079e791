// Package logger builds the process logger and records crash reports.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls New.
type Options struct {
	Verbose bool   // Debug level instead of Info
	Quiet   bool   // Warn level, for commands that print their own output
	File    string // JSON log file; empty logs to stderr
}

// New builds a logger. With a File it writes JSON lines there, otherwise it
// writes human-readable lines to stderr. Stdout is never used, since MCP mode
// speaks its protocol on stdout.
func New(opts Options) (*zap.Logger, error) {
	level := zap.InfoLevel
	switch {
	case opts.Verbose:
		level = zap.DebugLevel
	case opts.Quiet:
		level = zap.WarnLevel
	}

	var cfg zap.Config
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{opts.File}
		cfg.ErrorOutputPaths = []string{opts.File}
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		cfg.DisableStacktrace = !opts.Verbose
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableCaller = !opts.Verbose

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
