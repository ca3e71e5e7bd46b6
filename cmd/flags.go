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

package cmd

import (
	"fmt"
	"strings"
)

// connectorKind is a pflag.Value wrapping --connector so cobra can validate
// and print it in help text the same way it does logFormat and logLevel.
type connectorKind string

func (c *connectorKind) String() string {
	if string(*c) != "" {
		return strings.ToLower(string(*c))
	}
	return "direct"
}

func (c *connectorKind) Set(v string) error {
	switch strings.ToLower(v) {
	case "direct", "alloydb", "cloudsql":
		*c = connectorKind(v)
		return nil
	default:
		return fmt.Errorf(`connector must be one of "direct", "alloydb", or "cloudsql"`)
	}
}

func (c *connectorKind) Type() string {
	return "connectorKind"
}

// logFormat is a pflag.Value wrapping --logging-format.
type logFormat string

func (f *logFormat) String() string {
	if string(*f) != "" {
		return strings.ToLower(string(*f))
	}
	return "standard"
}

func (f *logFormat) Set(v string) error {
	switch strings.ToLower(v) {
	case "standard", "json":
		*f = logFormat(v)
		return nil
	default:
		return fmt.Errorf(`log format must be one of "standard", or "json"`)
	}
}

func (f *logFormat) Type() string {
	return "logFormat"
}

// logLevel is a pflag.Value wrapping --log-level.
type logLevel string

func (l *logLevel) String() string {
	if string(*l) != "" {
		return strings.ToLower(string(*l))
	}
	return "info"
}

func (l *logLevel) Set(v string) error {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		*l = logLevel(v)
		return nil
	default:
		return fmt.Errorf(`log level must be one of "debug", "info", "warn", or "error"`)
	}
}

func (l *logLevel) Type() string {
	return "logLevel"
}
