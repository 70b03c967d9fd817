/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logging hands out module loggers. The backing provider is chosen
// once per process: InitializeZap (or Initialize with a custom provider)
// must run before the first message, otherwise console zap output is used.
package logging

import (
	"io"
	"sync"

	"github.com/hyperledger/fabric-rest-gateway/pkg/core/logging/api"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/logging/metadata"
	"github.com/hyperledger/fabric-rest-gateway/pkg/core/logging/zaplog"
)

// Level is the severity of a message
type Level int

// Levels, most severe first
const (
	CRITICAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

const loggerModule = "fabgw/common"

var (
	moduleLevels = &metadata.ModuleLevels{}

	loggerProviderInstance api.LoggerProvider
	loggerProviderOnce     sync.Once
)

func loggerProvider() api.LoggerProvider {
	Initialize(zaplog.New(zaplog.Config{}, moduleLevels))
	return loggerProviderInstance
}

// Initialize installs the provider of every module logger. Only the first
// call has an effect.
func Initialize(l api.LoggerProvider) {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = l
		l.GetLogger(loggerModule).Debug("Logger provider initialized")
	})
}

// InitializeZap installs zap writing the given format ("console" or
// "json") to w, or to stderr when w is nil
func InitializeZap(format string, w io.Writer) {
	Initialize(zaplog.New(zaplog.Config{Format: format, Writer: w}, moduleLevels))
}

// SetLevel sets the level of a module; the empty module sets the default
func SetLevel(module string, level Level) {
	moduleLevels.SetLevel(module, api.Level(level))
}

// GetLevel returns the effective level of a module
func GetLevel(module string) Level {
	return Level(moduleLevels.GetLevel(module))
}

// IsEnabledFor reports whether messages of the level are emitted for the module
func IsEnabledFor(module string, level Level) bool {
	return moduleLevels.IsEnabledFor(module, api.Level(level))
}

// LogLevel parses a level name such as "info" or "WARNING"
func LogLevel(level string) (Level, error) {
	l, err := metadata.ParseLevel(level)
	return Level(l), err
}

// Logger writes the messages of one module. The provider is resolved on
// the first message so package level loggers pick up later initialization.
type Logger struct {
	module   string
	once     sync.Once
	instance api.Logger
}

// NewLogger returns the logger of a module
func NewLogger(module string) *Logger {
	return &Logger{module: module}
}

func (l *Logger) delegate() api.Logger {
	l.once.Do(func() {
		l.instance = loggerProvider().GetLogger(l.module)
	})
	return l.instance
}

// Fatal logs and exits the process
func (l *Logger) Fatal(args ...interface{})                 { l.delegate().Fatal(args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.delegate().Fatalf(format, args...) }

// Panic logs and panics
func (l *Logger) Panic(args ...interface{})                 { l.delegate().Panic(args...) }
func (l *Logger) Panicf(format string, args ...interface{}) { l.delegate().Panicf(format, args...) }

func (l *Logger) Debug(args ...interface{})                 { l.delegate().Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.delegate().Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.delegate().Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.delegate().Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.delegate().Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.delegate().Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.delegate().Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.delegate().Errorf(format, args...) }
