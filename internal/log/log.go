// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides the two logger flavors the CLI chooses between at
// startup (--logging-format standard|json), both backed by log/slog so
// the severity threshold and handler wiring stay in one place and the
// request logging middleware (go-chi/httplog, itself slog-based) shares
// the same level semantics.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger is the minimal surface the rest of pgrest logs through.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SeverityToLevel maps the CLI's --log-level string onto an slog.Level,
// the same threshold httplog.Options.LogLevel expects.
func SeverityToLevel(severity string) (slog.Level, error) {
	switch strings.ToLower(severity) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported log level %q", severity)
	}
}

type slogLogger struct {
	out *slog.Logger
	err *slog.Logger
}

func (l *slogLogger) Debug(msg string, args ...any) { l.out.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.out.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.err.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.err.Error(msg, args...) }

// NewStdLogger builds a human-readable text logger: info/debug to out,
// warn/error to err.
func NewStdLogger(out, errW io.Writer, level string) (Logger, error) {
	lvl, err := SeverityToLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	return &slogLogger{
		out: slog.New(slog.NewTextHandler(out, opts)),
		err: slog.New(slog.NewTextHandler(errW, opts)),
	}, nil
}

// NewStructuredLogger builds a JSON logger with the same severity split.
func NewStructuredLogger(out, errW io.Writer, level string) (Logger, error) {
	lvl, err := SeverityToLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	return &slogLogger{
		out: slog.New(slog.NewJSONHandler(out, opts)),
		err: slog.New(slog.NewJSONHandler(errW, opts)),
	}, nil
}
