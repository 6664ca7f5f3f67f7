// Package logger builds the zap loggers used by the API, the worker and the CLI.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// New creates a zap logger writing to cfg.Output.
// An unknown level falls back to info; an unwritable file path is an error.
func New(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), sink, ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ParseLevel converts a level name to a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		return zapcore.WarnLevel
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(format, "console") {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}
