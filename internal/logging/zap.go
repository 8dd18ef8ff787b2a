package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a console logger writing to stderr and, when logName is
// not empty, to a rolling <logName>.log file. env "dev" enables debug output.
// The returned func flushes buffered entries.
func NewLogger(logName string, env string) (*zap.Logger, func()) {
	encoder := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	var level zap.AtomicLevel
	if env == "dev" {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	var buffered *zapcore.BufferedWriteSyncer
	if logName != "" {
		buffered = &zapcore.BufferedWriteSyncer{WS: getLogWriter(logName)}
		sinks = append(sinks, buffered)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoder),
		zapcore.NewMultiWriteSyncer(sinks...),
		level)
	logger := zap.New(core,
		zap.AddStacktrace(zap.NewAtomicLevelAt(zapcore.ErrorLevel)),
		zap.AddCaller(),
	)
	return logger, func() {
		_ = logger.Sync()
		if buffered != nil {
			_ = buffered.Stop()
		}
	}
}

func getLogWriter(logName string) zapcore.WriteSyncer {
	lumberJackLogger := &lumberjack.Logger{
		Filename:   fmt.Sprintf("%s.log", logName),
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   false,
	}
	return zapcore.AddSync(lumberJackLogger)
}
