package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the SDK logger is built.
type Options struct {
	Level    string // verbose, debug, info, warn, error, suppress
	Encoding string // console or json
	Fields   []interface{}
}

// New builds a sugared zap logger for SDK components.
// Unknown levels fall back to info, matching the host default.
func New(opts Options) (*zap.SugaredLogger, error) {
	if ParseLevel(opts.Level) == suppressLevel {
		return Nop(), nil
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(opts.Encoding, "console") {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	sugared := l.Sugar()
	if len(opts.Fields) > 0 {
		sugared = sugared.With(opts.Fields...)
	}
	return sugared, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// suppressLevel sits above fatal so nothing is emitted.
const suppressLevel = zapcore.FatalLevel + 1

// ParseLevel maps SDK level names onto zap levels.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "verbose", "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error", "assert":
		return zapcore.ErrorLevel
	case "suppress":
		return suppressLevel
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return Nop()
	}
	return l
}
