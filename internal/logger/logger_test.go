package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"verbose", zapcore.DebugLevel},
		{"debug", zapcore.DebugLevel},
		{"", zapcore.InfoLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"assert", zapcore.ErrorLevel},
		{"dpanic", zapcore.DPanicLevel},
		{"nonsense", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("json encoding", func(t *testing.T) {
		l, err := New(Options{Level: "debug", Encoding: "json", Fields: []interface{}{"sdk", "test"}})
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("suppress discards everything", func(t *testing.T) {
		l, err := New(Options{Level: "suppress"})
		require.NoError(t, err)
		assert.False(t, l.Desugar().Core().Enabled(zapcore.ErrorLevel))
	})
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
