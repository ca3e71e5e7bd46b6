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

import "testing"

func TestConnectorKindDefaultsToDirect(t *testing.T) {
	var k connectorKind
	if got := k.String(); got != "direct" {
		t.Errorf("default connector kind = %q, want direct", got)
	}
}

func TestConnectorKindRejectsUnknownValue(t *testing.T) {
	var k connectorKind
	if err := k.Set("dynamodb"); err == nil {
		t.Fatal("expected an error for an unsupported connector kind")
	}
}

func TestConnectorKindAcceptsKnownValues(t *testing.T) {
	for _, v := range []string{"direct", "alloydb", "cloudsql"} {
		var k connectorKind
		if err := k.Set(v); err != nil {
			t.Errorf("Set(%q) returned %v", v, err)
		}
		if k.String() != v {
			t.Errorf("String() = %q, want %q", k.String(), v)
		}
	}
}

func TestLogFormatRejectsUnknownValue(t *testing.T) {
	var f logFormat
	if err := f.Set("xml"); err == nil {
		t.Fatal("expected an error for an unsupported logging format")
	}
}

func TestLogLevelRejectsUnknownValue(t *testing.T) {
	var l logLevel
	if err := l.Set("verbose"); err == nil {
		t.Fatal("expected an error for an unsupported log level")
	}
}
