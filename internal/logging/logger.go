// Package logging sets up the process-wide structured logger. Ported
// near-verbatim from the teacher's server/logger.go: a zap
// SugaredLogger over a lumberjack rotating file sink, console-encoded.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a SugaredLogger writing to filePath with rotation: 10MB per
// file, 3 backups, 7 day max age. level is parsed from a zap level name
// ("debug", "info", "warn", "error", ...); an empty or unrecognized
// value falls back to debug.
func New(filePath, level string) (*zap.SugaredLogger, func(), error) {
	lj := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   false,
	}

	ws := zapcore.AddSync(lj)
	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)
	core := zapcore.NewCore(encoder, ws, parseLevel(level))

	logger := zap.New(core, zap.AddCaller())
	sugared := logger.Sugar()
	return sugared, func() { _ = sugared.Sync() }, nil
}

func parseLevel(level string) zapcore.Level {
	if level == "" {
		return zapcore.DebugLevel
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.DebugLevel
	}
	return l
}
