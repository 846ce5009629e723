//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestPackageFuncs(t *testing.T) {
	old := Default
	defer func() { Default = old }()

	Default = &noopLogger{}
	Debug("test")
	Debugf("test %d", 1)
	Info("test")
	Infof("test %d", 1)
	Warn("test")
	Warnf("test %d", 1)
	Error("test")
	Errorf("test %d", 1)
	Fatal("test")
	Fatalf("test %d", 1)
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	cases := []struct {
		in       string
		expected zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{"  WARN ", zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{LevelInfo, zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, c := range cases {
		SetLevel(c.in)
		assert.Equal(t, c.expected, zapLevel.Level(), c.in)
	}
}

func TestSetLevelFiltersDefaultOutput(t *testing.T) {
	defer SetLevel(LevelInfo)

	var buf bytes.Buffer
	l := newLogger(zapcore.AddSync(&buf))

	SetLevel(LevelWarn)
	l.Infof("hidden %s", "info")
	assert.Empty(t, buf.String())

	l.Warnf("shown %s", "warning")
	assert.Contains(t, buf.String(), "shown warning")

	SetLevel(LevelDebug)
	assert.Equal(t, "debug", GetLevel())
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

type noopLogger struct{}

func (*noopLogger) Debug(args ...any)                 {}
func (*noopLogger) Debugf(format string, args ...any) {}
func (*noopLogger) Info(args ...any)                  {}
func (*noopLogger) Infof(format string, args ...any)  {}
func (*noopLogger) Warn(args ...any)                  {}
func (*noopLogger) Warnf(format string, args ...any)  {}
func (*noopLogger) Error(args ...any)                 {}
func (*noopLogger) Errorf(format string, args ...any) {}
func (*noopLogger) Fatal(args ...any)                 {}
func (*noopLogger) Fatalf(format string, args ...any) {}
