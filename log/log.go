//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package log provides the process wide logger used by every mathsgpt package.
package log

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by SetLevel and the log_level setting.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Default writes colored console lines to stdout. Tests swap it to capture
// output.
var Default Logger = newLogger(zapcore.AddSync(os.Stdout))

func newLogger(ws zapcore.WriteSyncer) Logger {
	return zap.New(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), ws, zapLevel),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	).Sugar()
}

// SetLevel changes the minimum level of Default at runtime. Names are case
// insensitive; anything unrecognized means info.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	case LevelFatal:
		zapLevel.SetLevel(zapcore.FatalLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

// GetLevel reports the active minimum level.
func GetLevel() string {
	return zapLevel.Level().String()
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalColorLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Logger is satisfied by *zap.SugaredLogger. The plain variants join their
// arguments like fmt.Print, the f variants format like fmt.Printf.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
}

// Debug logs at debug level through Default.
func Debug(args ...any) {
	Default.Debug(args...)
}

// Debugf is the formatting variant of Debug.
func Debugf(format string, args ...any) {
	Default.Debugf(format, args...)
}

// Info logs at info level through Default.
func Info(args ...any) {
	Default.Info(args...)
}

// Infof is the formatting variant of Info.
func Infof(format string, args ...any) {
	Default.Infof(format, args...)
}

// Warn logs at warn level through Default.
func Warn(args ...any) {
	Default.Warn(args...)
}

// Warnf is the formatting variant of Warn.
func Warnf(format string, args ...any) {
	Default.Warnf(format, args...)
}

// Error logs at error level through Default.
func Error(args ...any) {
	Default.Error(args...)
}

// Errorf is the formatting variant of Error.
func Errorf(format string, args ...any) {
	Default.Errorf(format, args...)
}

// Fatal logs through Default and exits the process.
func Fatal(args ...any) {
	Default.Fatal(args...)
}

// Fatalf is the formatting variant of Fatal.
func Fatalf(format string, args ...any) {
	Default.Fatalf(format, args...)
}
