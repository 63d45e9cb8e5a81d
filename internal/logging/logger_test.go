package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	l, err := NewLogger(Config{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(Config{Format: "xml"})
	require.Error(t, err)
}

func TestGlobalFallback(t *testing.T) {
	own := zap.NewExample()
	require.Same(t, own, Or(own, "sync"))
	require.NotNil(t, Or(nil, "sync"))

	SetGlobal(own)
	t.Cleanup(func() { SetGlobal(nil) })
	require.Same(t, own, L())
}
