// Package logger provides the centralized structured logging setup for the
// planning service, built on zap with lumberjack-managed file rotation.
package logger

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fieldplan/allocator/internal/utils/errors"
	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

const (
	defaultLogPath       = "./logs/app.log"
	defaultMaxSize       = 100 // megabytes
	defaultMaxBackups    = 5
	defaultMaxAge        = 30 // days
	defaultCompress      = true
	defaultBufferSize    = 256 * 1024
	defaultFlushInterval = 30 * time.Second
)

// NewLogger builds a zap.Logger whose level and sink set depend on the
// service's environment: development tees to console, staging/production
// write only the rotated JSON file.
func NewLogger(cfg *cfgtypes.ServiceConfig) (*zap.Logger, error) {
	if cfg == nil {
		return nil, errors.NewError("VALIDATION_ERROR", "service configuration cannot be nil", nil)
	}

	if err := os.MkdirAll(filepath.Dir(defaultLogPath), 0750); err != nil {
		return nil, errors.WrapError(err, "failed to create log directory", nil)
	}

	rotator := &lumberjack.Logger{
		Filename:   defaultLogPath,
		MaxSize:    defaultMaxSize,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAge,
		Compress:   defaultCompress,
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var logLevel zapcore.Level
	switch cfg.Environment {
	case "production", "staging":
		logLevel = zapcore.InfoLevel
	default:
		logLevel = zapcore.DebugLevel
	}

	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)
	bufferedWriter := zapcore.NewBufferedWriteSyncer(zapcore.AddSync(rotator), defaultBufferSize, defaultFlushInterval)

	var core zapcore.Core
	if cfg.Environment == "development" {
		consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
		core = zapcore.NewTee(
			zapcore.NewCore(jsonEncoder, bufferedWriter, logLevel),
			zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), logLevel),
		)
	} else {
		core = zapcore.NewCore(jsonEncoder, bufferedWriter, logLevel)
	}

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("service", cfg.ServiceName),
			zap.String("version", cfg.Version),
			zap.String("environment", cfg.Environment),
		),
	), nil
}

// Error logs an error with its coded error_code extracted, routing to
// Warn instead of Error when the error is a caller/validation failure
// rather than a system failure.
func Error(logger *zap.Logger, message string, err error, fields ...zap.Field) {
	if logger == nil {
		return
	}
	base := []zap.Field{zap.String("error_code", errors.GetCode(err)), zap.Error(err)}
	base = append(base, fields...)
	if errors.IsSystemError(err) {
		logger.Error(message, base...)
	} else {
		logger.Warn(message, base...)
	}
}

// Info logs an informational message with a timestamp field.
func Info(logger *zap.Logger, message string, fields ...zap.Field) {
	if logger == nil {
		return
	}
	base := append([]zap.Field{zap.Time("timestamp", time.Now())}, fields...)
	logger.Info(message, base...)
}

// Debug logs a debug-level message.
func Debug(logger *zap.Logger, message string, fields ...zap.Field) {
	if logger == nil {
		return
	}
	base := append([]zap.Field{zap.Time("timestamp", time.Now())}, fields...)
	logger.Debug(message, base...)
}
