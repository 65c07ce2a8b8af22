// Package logger holds the process-wide zap logger. It starts as a no-op
// logger so library use stays silent until the host program opts in.
package logger

import (
	"go.uber.org/zap"
)

// Log is the shared logger. It is a no-op until Initialize is called.
var Log = zap.NewNop()

// Initialize replaces Log with a production logger at the given level
// ("debug", "info", "warn", "error"). Returns an error for an unknown
// level or if the logger cannot be built.
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = zl
	return nil
}
