// Copyright 2025 Open Network Fabric Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log wraps zap behind a key/value logging interface. All gateway
// code logs through this package; the underlying zap logger is configured
// once at startup via Setup.
package log

import (
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Level is the log level type re-exported to avoid zap imports at call sites.
type Level = zapcore.Level

// Available log levels.
const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	ErrorLevel = zapcore.ErrorLevel
)

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...any) Logger
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Enabled(lvl Level) bool
}

type logger struct {
	logger *zap.Logger
}

// New creates a logger with the given context, derived from the root logger.
func New(ctx ...any) Logger {
	return root().New(ctx...)
}

func (l *logger) New(ctx ...any) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...any) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...any) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...any) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(lvl)
}

func convertCtx(ctx []any) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(ctx[i]), ctx[i+1]))
	}
	return fields
}

// Config configures the logging backend.
type Config struct {
	// Level of the main console logging backend. One of debug, info, error.
	Level string `yaml:"level" toml:"level"`
	// Format of the console logging backend. One of human or json.
	Format string `yaml:"format" toml:"format"`
	// Targets maps logger names to level overrides.
	Targets map[string]string `yaml:"targets" toml:"targets"`
}

// Setup configures the process-wide logging backend and the runtime level
// control. It must be called exactly once, before any logging happens.
func Setup(cfg Config) error {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	zCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(lvl),
		DisableStacktrace: true,
		Encoding:          encoding(cfg.Format),
		EncoderConfig:     encCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	zlog, err := zCfg.Build()
	if err != nil {
		return serrors.Wrap("creating logger", err)
	}
	zap.ReplaceGlobals(zlog)
	if err := setupControl(lvl, cfg.Targets); err != nil {
		return err
	}
	return nil
}

func encoding(format string) string {
	if format == "json" {
		return "json"
	}
	return "console"
}

func parseLevel(lvl string) (Level, error) {
	switch strings.ToLower(lvl) {
	case "", "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, serrors.New("unsupported log level", "level", lvl)
	}
}

func root() *logger {
	return &logger{logger: zap.L()}
}

// Root returns the root logger.
func Root() Logger {
	return root()
}

// Debug logs at debug level on the root logger.
func Debug(msg string, ctx ...any) {
	root().logger.Debug(msg, convertCtx(ctx)...)
}

// Info logs at info level on the root logger.
func Info(msg string, ctx ...any) {
	root().logger.Info(msg, convertCtx(ctx)...)
}

// Error logs at error level on the root logger.
func Error(msg string, ctx ...any) {
	root().logger.Error(msg, convertCtx(ctx)...)
}

// HandlePanic catches panics and logs them. Every goroutine spawned by the
// gateway must defer this.
func HandlePanic() {
	if msg := recover(); msg != nil {
		root().logger.Error("Panic", zap.Any("msg", msg),
			zap.ByteString("stack", debug.Stack()))
		panic(msg)
	}
}

// Flush writes the logs to the underlying buffer.
func Flush() error {
	return root().logger.Sync()
}
