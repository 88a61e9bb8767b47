package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetBeforeInit(t *testing.T) {
	assert.NotNil(t, Get())
}

func TestInit(t *testing.T) {
	require.NoError(t, Init("warn", false))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init("debug", true))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("loud", false))
}
