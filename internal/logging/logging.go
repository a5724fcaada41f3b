// Package logging builds the process logger from the log configuration section.
//
// Package logging 根据日志配置段构建进程日志记录器。
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Humphrey-He/hcatalog/configs"
)

// New creates a zap logger for the given configuration.
// The returned level can be changed at runtime, e.g. on config reload.
//
// New 根据配置创建zap日志记录器。返回的级别可在运行时修改，例如配置重载时。
//
// Parameters:
//   - c: The log configuration section
//
// Returns:
//   - *zap.Logger: The logger
//   - zap.AtomicLevel: The adjustable level of the logger
//   - error: An error if the level or output is invalid
func New(c configs.LogConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if err := SetLevel(level, c.Level); err != nil {
		return nil, level, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(c.Format) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console", "text":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, level, fmt.Errorf("unsupported log format: %s", c.Format)
	}

	sink, err := output(c)
	if err != nil {
		return nil, level, err
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller()), level, nil
}

// SetLevel parses name and applies it to level.
// SetLevel 解析级别名称并应用到level。
func SetLevel(level zap.AtomicLevel, name string) error {
	if name == "" {
		name = "info"
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(l)
	return nil
}

func output(c configs.LogConfig) (zapcore.WriteSyncer, error) {
	switch c.Output {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "file":
		if c.FilePath == "" {
			return nil, fmt.Errorf("log file path is required for file output")
		}
		f, err := os.OpenFile(c.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return zapcore.AddSync(f), nil
	default:
		return nil, fmt.Errorf("unsupported log output: %s", c.Output)
	}
}
