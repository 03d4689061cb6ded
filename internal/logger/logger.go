package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// L is the global sugared logger.
	L *zap.SugaredLogger
	// Z is the global zap.Logger for hot paths.
	Z *zap.Logger
	// fileWriter is kept so Sync can release the rotated log file.
	fileWriter *lumberjack.Logger
)

func init() {
	// Info level to stderr until Init is called.
	z, _ := zap.NewProduction()
	Z = z
	L = z.Sugar()
}

// Config controls the global logger.
type Config struct {
	Level      string    // debug, info, warn, error
	File       string    // optional log file, console only when empty
	MaxSize    int       // max size of one log file in MB
	MaxBackups int       // rotated files to keep
	MaxAge     int       // days to keep rotated files
	Output     io.Writer // console destination, os.Stderr when nil
}

// ParseLevel maps a config level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", level)
	}
}

// Init replaces the global logger according to cfg.
func Init(cfg Config) error {
	zapLevel, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}

		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 64
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		maxAge := cfg.MaxAge
		if maxAge <= 0 {
			maxAge = 7
		}

		fileWriter = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   true,
		}
		output = io.MultiWriter(output, fileWriter)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(output),
		zapLevel,
	)

	Z = zap.New(core, zap.AddCallerSkip(1))
	L = Z.Sugar()
	return nil
}

// Sync flushes buffered entries and closes the log file, if any.
// Call it before the process exits.
func Sync() {
	if Z != nil {
		_ = Z.Sync()
	}
	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}
}

// Debug logs at debug level.
func Debug(msg string) { L.Debug(msg) }

// Debugf logs a formatted message at debug level.
func Debugf(template string, args ...interface{}) { L.Debugf(template, args...) }

// Info logs at info level.
func Info(msg string) { L.Info(msg) }

// Infof logs a formatted message at info level.
func Infof(template string, args ...interface{}) { L.Infof(template, args...) }

// Warn logs at warn level.
func Warn(msg string) { L.Warn(msg) }

// Warnf logs a formatted message at warn level.
func Warnf(template string, args ...interface{}) { L.Warnf(template, args...) }

// Error logs at error level.
func Error(msg string) { L.Error(msg) }

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...interface{}) { L.Errorf(template, args...) }
