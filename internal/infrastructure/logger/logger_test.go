package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_FileOutputCarriesServiceFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billpay.log")
	l, err := New(Config{Level: "debug", Format: "json", Output: path, Service: "billpay", Env: "test"})
	require.NoError(t, err)

	l.Debug("sweep finished")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"sweep finished"`)
	assert.Contains(t, string(data), `"service":"billpay"`)
	assert.Contains(t, string(data), `"env":"test"`)
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "billpay.log")})
	assert.ErrorContains(t, err, "directory does not exist")
}

func TestNew_ConsoleToStdout(t *testing.T) {
	l, err := New(Config{Format: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
