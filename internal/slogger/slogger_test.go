package slogger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Verbosity(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantInfo  bool
		wantDebug bool
	}{
		{"default logs errors only", 0, false, false},
		{"-v adds info", 1, true, false},
		{"-vv adds debug", 2, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Verbosity: tt.verbosity, Output: &buf})

			logger.Debug("debug line")
			logger.Info("info line")
			logger.Error("error line")

			out := buf.String()
			assert.Contains(t, out, "error line")
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info line")), out)
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")), out)
		})
	}
}

func TestNew_Prefix(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Prefix: "pyexec"})

	logger.Error("boom")

	assert.Contains(t, buf.String(), "pyexec")
}

func TestFromContext(t *testing.T) {
	t.Run("returns the stored logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Output: &buf})
		ctx := WithLogger(context.Background(), logger)

		L(ctx).Error("stored")

		assert.Contains(t, buf.String(), "stored")
	})

	t.Run("falls back to a discarding logger", func(t *testing.T) {
		logger := FromContext(context.Background())

		assert.NotNil(t, logger)
		assert.NotPanics(t, func() { logger.Error("dropped") })
	})
}
