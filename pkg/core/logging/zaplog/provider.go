/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package zaplog is the default logger provider. Module loggers are named
// zap loggers sharing one core; per-module levels are decided by a Leveler
// so levels can change at runtime without rebuilding loggers.
package zaplog

import (
	"io"
	"os"

	"github.com/hyperledger/fabric-rest-gateway/pkg/core/logging/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ConsoleFormat writes human readable lines
	ConsoleFormat = "console"
	// JSONFormat writes one JSON object per line
	JSONFormat = "json"
)

// Config for the zap backed provider
type Config struct {
	Format string
	Writer io.Writer
}

// Provider creates module loggers backed by zap
type Provider struct {
	base    *zap.Logger
	leveler api.Leveler
}

// New returns a provider writing to c.Writer (stderr by default)
func New(c Config, leveler api.Leveler) *Provider {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.NameKey = "name"
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if c.Format == JSONFormat {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var ws zapcore.WriteSyncer
	switch w := c.Writer.(type) {
	case nil:
		ws = zapcore.Lock(os.Stderr)
	case *os.File:
		ws = zapcore.Lock(w)
	default:
		ws = zapcore.AddSync(w)
	}

	// filtering happens per module in Log, so the core accepts everything
	core := zapcore.NewCore(encoder, ws, zap.NewAtomicLevelAt(zapcore.DebugLevel))

	return &Provider{
		base:    zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)),
		leveler: leveler,
	}
}

// GetLogger returns a logger for the given module
func (p *Provider) GetLogger(module string) api.Logger {
	return &Log{
		sugar:   p.base.Named(module).Sugar(),
		module:  module,
		leveler: p.leveler,
	}
}

// Sync flushes buffered entries
func (p *Provider) Sync() error {
	return p.base.Sync()
}

// Log is a module logger
type Log struct {
	sugar   *zap.SugaredLogger
	module  string
	leveler api.Leveler
}

func (l *Log) enabled(level api.Level) bool {
	if l.leveler == nil {
		return level <= api.INFO
	}
	return l.leveler.IsEnabledFor(l.module, level)
}

// Fatal logs and exits the process
func (l *Log) Fatal(args ...interface{}) {
	l.sugar.Fatal(args...)
}

// Fatalf logs and exits the process
func (l *Log) Fatalf(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// Panic logs and panics
func (l *Log) Panic(args ...interface{}) {
	l.sugar.Panic(args...)
}

// Panicf logs and panics
func (l *Log) Panicf(format string, args ...interface{}) {
	l.sugar.Panicf(format, args...)
}

// Debug logs at DEBUG level
func (l *Log) Debug(args ...interface{}) {
	if l.enabled(api.DEBUG) {
		l.sugar.Debug(args...)
	}
}

// Debugf logs at DEBUG level
func (l *Log) Debugf(format string, args ...interface{}) {
	if l.enabled(api.DEBUG) {
		l.sugar.Debugf(format, args...)
	}
}

// Info logs at INFO level
func (l *Log) Info(args ...interface{}) {
	if l.enabled(api.INFO) {
		l.sugar.Info(args...)
	}
}

// Infof logs at INFO level
func (l *Log) Infof(format string, args ...interface{}) {
	if l.enabled(api.INFO) {
		l.sugar.Infof(format, args...)
	}
}

// Warn logs at WARNING level
func (l *Log) Warn(args ...interface{}) {
	if l.enabled(api.WARNING) {
		l.sugar.Warn(args...)
	}
}

// Warnf logs at WARNING level
func (l *Log) Warnf(format string, args ...interface{}) {
	if l.enabled(api.WARNING) {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs at ERROR level
func (l *Log) Error(args ...interface{}) {
	if l.enabled(api.ERROR) {
		l.sugar.Error(args...)
	}
}

// Errorf logs at ERROR level
func (l *Log) Errorf(format string, args ...interface{}) {
	if l.enabled(api.ERROR) {
		l.sugar.Errorf(format, args...)
	}
}
