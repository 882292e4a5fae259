package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Run("Should accept known levels case-insensitively", func(t *testing.T) {
		lvl, err := ParseLevel(" DEBUG ")
		require.NoError(t, err)
		assert.Equal(t, DebugLevel, lvl)
	})

	t.Run("Should reject unknown levels", func(t *testing.T) {
		_, err := ParseLevel("verbose")
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should honor level and JSON formatting", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: WarnLevel, Output: &buf, JSON: true})

		log.Info("hidden")
		log.With("component", "guardian").Warn("probe failed", "error", "EOF")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, `"msg":"probe failed"`)
		assert.Contains(t, out, `"component":"guardian"`)
	})

	t.Run("Should be safe to use the noop logger", func(t *testing.T) {
		log := NewNoop().With("k", "v")
		log.Debug("x")
		log.Error("y")
	})
}
