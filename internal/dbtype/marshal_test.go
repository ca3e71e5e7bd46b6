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

package dbtype

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decodeNumber(t *testing.T, raw string) json.Number {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	num, ok := v.(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", v)
	}
	return num
}

func TestFromJSONNull(t *testing.T) {
	v, err := FromJSON(nil, Text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.State != Nullable || v.Value != nil {
		t.Fatalf("expected Nullable(None), got %+v", v)
	}
}

func TestFromJSONInteger(t *testing.T) {
	v, err := FromJSON(decodeNumber(t, "46327143679919107"), BigInt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Value != int64(46327143679919107) {
		t.Fatalf("expected int64 value, got %+v", v.Value)
	}
}

func TestFromJSONIntegerRejectsNonNumber(t *testing.T) {
	if _, err := FromJSON("not a number", Int); err == nil {
		t.Fatalf("expected error converting string to Int")
	}
}

func TestFromJSONBool(t *testing.T) {
	v, err := FromJSON(true, Bool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Value != true {
		t.Fatalf("expected true, got %+v", v.Value)
	}
}

func TestFromJSONUUID(t *testing.T) {
	v, err := FromJSON("4b8b1f3e-3e7b-4c6b-9f1a-6f1f5b1c9a6e", Uuid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ColumnType != Uuid {
		t.Fatalf("expected Uuid tag, got %v", v.ColumnType)
	}
}

func TestFromJSONUUIDInvalid(t *testing.T) {
	if _, err := FromJSON("not-a-uuid", Uuid); err == nil {
		t.Fatalf("expected UUID parse error")
	}
}

func TestFromJSONUnsupportedDataType(t *testing.T) {
	if _, err := FromJSON("x", ColumnType("Unknown")); err == nil {
		t.Fatalf("expected error for unsupported column type")
	}
}

func TestCellToJSONRoundTripsText(t *testing.T) {
	got, err := CellToJSON(Text, "a name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a name" {
		t.Fatalf("expected 'a name', got %v", got)
	}
}

func TestCellToJSONNull(t *testing.T) {
	got, err := CellToJSON(Text, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestCellToJSONUnsupportedSurfacesDiagnosticText(t *testing.T) {
	got, err := CellToJSON(ColumnType("WeirdType"), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := got.(string)
	if !ok {
		t.Fatalf("expected diagnostic string, got %T", got)
	}
	if s == "" {
		t.Fatalf("expected a non-empty diagnostic string")
	}
}

func TestDefaultValueNotBindable(t *testing.T) {
	v := Default(Int)
	if _, err := v.BindArg(); err == nil {
		t.Fatalf("expected error binding a DEFAULT value")
	}
}

func TestFromPostgresTypeName(t *testing.T) {
	tag, ok := FromPostgresTypeName("int8")
	if !ok || tag != BigInt {
		t.Fatalf("expected BigInt, got %v ok=%v", tag, ok)
	}
	if _, ok := FromPostgresTypeName("made_up_type"); ok {
		t.Fatalf("expected unknown type to miss")
	}
}
