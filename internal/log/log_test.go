package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" DEBUG ": LevelDebug,
		"error":   LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggingDoesNotPanic(t *testing.T) {
	SetLevel(LevelDebug)
	defer SetLevel(LevelInfo)

	assert.NotPanics(t, func() {
		Debug("debug line", "k", 1)
		Info("info line", "k", true)
		Error("error line", errors.New("boom"), "k", "v")
		Error("error line without err", nil)
	})
}
