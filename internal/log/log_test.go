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

package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSeverityToLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for input, want := range cases {
		got, err := SeverityToLevel(input)
		if err != nil {
			t.Fatalf("SeverityToLevel(%q): unexpected error: %v", input, err)
		}
		if got != want {
			t.Errorf("SeverityToLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestSeverityToLevelRejectsUnknown(t *testing.T) {
	if _, err := SeverityToLevel("verbose"); err == nil {
		t.Fatalf("expected an error for an unrecognized level")
	}
}

func TestNewStdLoggerSplitsStreamsByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger, err := NewStdLogger(&out, &errOut, "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("server ready")
	logger.Error("boom")

	if !strings.Contains(out.String(), "server ready") {
		t.Errorf("expected info message on the out stream, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "boom") {
		t.Errorf("expected error message on the err stream, got %q", errOut.String())
	}
}

func TestNewStructuredLoggerRespectsLevelThreshold(t *testing.T) {
	var out, errOut bytes.Buffer
	logger, err := NewStructuredLogger(&out, &errOut, "warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("should be suppressed")
	logger.Info("also suppressed")
	logger.Warn("visible")

	if out.Len() != 0 {
		t.Errorf("expected debug/info to be suppressed below warn threshold, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), `"msg":"visible"`) {
		t.Errorf("expected JSON-encoded warn message, got %q", errOut.String())
	}
}
