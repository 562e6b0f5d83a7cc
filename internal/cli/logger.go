package cli

import (
	"go.uber.org/zap"

	"github.com/vburojevic/adjust/internal/logger"
)

// newCommandLogger builds the SDK logger for one command run. --quiet wins
// over --verbose; otherwise the configured level and encoding apply.
func newCommandLogger(globals *Globals, command string) *zap.SugaredLogger {
	opts := logger.Options{
		Level:    globals.Config.Log.Level,
		Encoding: globals.Config.Log.Format,
		Fields:   []interface{}{"command", command},
	}
	switch {
	case globals.Quiet:
		opts.Level = "suppress"
	case globals.Verbose:
		opts.Level = "verbose"
	}

	l, err := logger.New(opts)
	if err != nil {
		return logger.Nop()
	}
	return l
}
