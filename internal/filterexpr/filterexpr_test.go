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

package filterexpr

import (
	"testing"

	"github.com/kaibyao/pgrest/internal/apierr"
)

func TestParseEmptyStringFailsToParse(t *testing.T) {
	_, err := Parse("")
	if err == nil {
		t.Fatal("expected an error parsing an empty filter string")
	}
	apiErr, ok := err.(*apierr.APIError)
	if !ok || apiErr.Code != apierr.CodeInvalidSQLSyntax {
		t.Fatalf("expected INVALID_SQL_SYNTAX, got %v", err)
	}
}

func TestIsEmptyRecognizesSentinel(t *testing.T) {
	if !IsEmpty(Empty) {
		t.Fatalf("expected Empty to be recognized as empty")
	}
	if !IsEmpty(nil) {
		t.Fatalf("expected nil to be recognized as empty")
	}
}

func TestParseSimpleComparison(t *testing.T) {
	expr, err := Parse("age > 18")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := expr.(BinaryOp)
	if !ok {
		t.Fatalf("expected BinaryOp, got %#v", expr)
	}
	if bin.Op != ">" {
		t.Fatalf("expected operator >, got %q", bin.Op)
	}
	if id, ok := bin.Left.(Identifier); !ok || id.Name != "age" {
		t.Fatalf("expected left identifier 'age', got %#v", bin.Left)
	}
	if v, ok := bin.Right.(Value); !ok || v.Literal != int32(18) {
		t.Fatalf("expected right literal 18, got %#v", bin.Right)
	}
}

func TestParseAndOr(t *testing.T) {
	expr, err := Parse("active = true AND age > 18")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := expr.(BinaryOp)
	if !ok || bin.Op != "AND" {
		t.Fatalf("expected top-level AND, got %#v", expr)
	}
}

func TestParseCompoundIdentifier(t *testing.T) {
	expr, err := Parse("company_id.name = 'acme'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin := expr.(BinaryOp)
	ci, ok := bin.Left.(CompoundIdentifier)
	if !ok {
		t.Fatalf("expected CompoundIdentifier, got %#v", bin.Left)
	}
	if len(ci.Path) != 2 || ci.Path[0] != "company_id" || ci.Path[1] != "name" {
		t.Fatalf("unexpected path: %v", ci.Path)
	}
}

func TestParseInList(t *testing.T) {
	expr, err := Parse("status IN ('a', 'b', 'c')")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in, ok := expr.(InList)
	if !ok {
		t.Fatalf("expected InList, got %#v", expr)
	}
	if len(in.List) != 3 || in.Negated {
		t.Fatalf("unexpected InList: %#v", in)
	}
}

func TestParseBetween(t *testing.T) {
	expr, err := Parse("age BETWEEN 18 AND 65")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	between, ok := expr.(Between)
	if !ok || between.Negated {
		t.Fatalf("expected non-negated Between, got %#v", expr)
	}
}

func TestParseIsNull(t *testing.T) {
	expr, err := Parse("deleted_at IS NULL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := expr.(IsNull); !ok {
		t.Fatalf("expected IsNull, got %#v", expr)
	}
}

func TestParseCast(t *testing.T) {
	expr, err := Parse("id::text = '1'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin := expr.(BinaryOp)
	if _, ok := bin.Left.(Cast); !ok {
		t.Fatalf("expected Cast on the left side, got %#v", bin.Left)
	}
}

func TestParseFunctionCall(t *testing.T) {
	expr, err := Parse("lower(name) = 'bob'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin := expr.(BinaryOp)
	fn, ok := bin.Left.(Function)
	if !ok || fn.Name != "lower" || len(fn.Args) != 1 {
		t.Fatalf("expected Function lower(name), got %#v", bin.Left)
	}
}

func TestParseInvalidSyntaxReturnsAPIError(t *testing.T) {
	_, err := Parse("this is not == valid sql (")
	if err == nil {
		t.Fatalf("expected an error for invalid filter syntax")
	}
	apiErr, ok := err.(*apierr.APIError)
	if !ok || apiErr.Code != apierr.CodeInvalidSQLSyntax {
		t.Fatalf("expected INVALID_SQL_SYNTAX, got %v", err)
	}
	if apiErr.Offender == nil || *apiErr.Offender != "this is not == valid sql (" {
		t.Fatalf("expected offender to be the original filter string, got %v", apiErr.Offender)
	}
}

func TestParseRejectsSubquery(t *testing.T) {
	_, err := Parse("id IN (SELECT id FROM other)")
	if err == nil {
		t.Fatalf("expected subqueries to be rejected")
	}
}

func TestDotPathsCollectsNestedPaths(t *testing.T) {
	expr, err := Parse("parent_id.company_id.name = 'acme' AND active = true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paths := DotPaths(expr)
	if len(paths) != 1 || paths[0] != "parent_id.company_id.name" {
		t.Fatalf("unexpected dot paths: %v", paths)
	}
}
