// File: internal/logging/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// zap-backed logr construction for the hello command.

package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels understood by the engines.
const (
	DEFAULT = 0 // lifecycle events
	VERBOSE = 1 // per-datagram traces
	DEBUG   = 2
	TRACE   = 3
)

// Options configures the root logger.
type Options struct {
	Verbosity   int
	Development bool
}

// Level maps a logr verbosity onto the zap level zapr expects.
func Level(verbosity int) zapcore.Level {
	if verbosity < 0 {
		verbosity = 0
	}
	return zapcore.Level(int8(-verbosity))
}

// New builds a logr.Logger writing to stderr.
func New(opts Options) (logr.Logger, *zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(Level(opts.Verbosity))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zl, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return logr.Discard(), nil, err
	}
	return zapr.NewLogger(zl), zl, nil
}

