// Package logger builds the service's zap loggers and the gin and GORM
// adapters that write through them.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination. Service and Env, when
// set, are attached to every entry.
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json, console
	Output  string // stdout, stderr or a file path
	Service string
	Env     string
}

// New builds the root logger. Unknown levels mean info. A file output must
// live in an existing directory.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.Development = false
	}
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.Sampling = nil
	zc.DisableStacktrace = true
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	out, err := outputPath(cfg.Output)
	if err != nil {
		return nil, err
	}
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	fields := map[string]any{}
	if cfg.Service != "" {
		fields["service"] = cfg.Service
	}
	if cfg.Env != "" {
		fields["env"] = cfg.Env
	}
	if len(fields) > 0 {
		zc.InitialFields = fields
	}

	return zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// ParseLevel maps a level name to zap, defaulting to info
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	if l < zapcore.DebugLevel || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

func outputPath(output string) (string, error) {
	switch o := strings.ToLower(output); o {
	case "", "stdout", "stderr":
		if o == "" {
			return "stdout", nil
		}
		return o, nil
	}
	if info, err := os.Stat(filepath.Dir(output)); err != nil || !info.IsDir() {
		return "", fmt.Errorf("log output %q: directory does not exist", output)
	}
	return output, nil
}
