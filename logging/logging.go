// Package logging builds the zap logger used by the command line tools.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log level and destination.
type Config struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string

	// File is a log file path, or "stdout"/"stderr". Empty means stderr.
	File string

	// MaxSizeMB, MaxBackups and MaxAgeDays control file rotation
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel converts a level name to a zap level.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// writer returns the sink for path; files are rotated by lumberjack.
func writer(cfg Config) zapcore.WriteSyncer {
	switch strings.ToLower(cfg.File) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr)
	case "stdout":
		return zapcore.Lock(os.Stdout)
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	})
}

// New returns a sugared JSON logger for cfg.
func New(cfg Config) *zap.SugaredLogger {
	core := zapcore.NewCore(encoder(), writer(cfg), ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller()).Sugar()
}

// Adapter lets a zap logger serve as update.Logger.
type Adapter struct {
	log *zap.SugaredLogger
}

// NewAdapter wraps log. The engine's caller frames are skipped so log
// lines point at the engine code.
func NewAdapter(log *zap.SugaredLogger) *Adapter {
	return &Adapter{log: log.WithOptions(zap.AddCallerSkip(1))}
}

func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.log.Debugw(msg, keysAndValues...)
}

func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.log.Infow(msg, keysAndValues...)
}

func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	a.log.Errorw(msg, keysAndValues...)
}
