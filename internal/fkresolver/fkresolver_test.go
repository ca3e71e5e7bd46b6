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

package fkresolver

import (
	"context"
	"testing"

	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/schema"
)

type fakeCache map[string]schema.TableStats

func (f fakeCache) Fetch(_ context.Context, table string) (schema.TableStats, error) {
	return f[table], nil
}

func (f fakeCache) Reset(_ context.Context) error { return nil }

func (f fakeCache) Tables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	return names, nil
}

func refTable(name string) *string { return &name }

func colType(t dbtype.ColumnType) *dbtype.ColumnType { return &t }

func fixture() fakeCache {
	return fakeCache{
		"child": schema.TableStats{Table: "child", Columns: []schema.TableColumnStat{
			{Name: "id", ColumnType: dbtype.BigInt},
			{Name: "parent_id", ColumnType: dbtype.BigInt, IsForeignKey: true,
				ReferredTable: refTable("parent"), ReferredColumn: refTable("id"), ReferredColumnType: colType(dbtype.BigInt)},
		}},
		"parent": schema.TableStats{Table: "parent", Columns: []schema.TableColumnStat{
			{Name: "id", ColumnType: dbtype.BigInt},
			{Name: "name", ColumnType: dbtype.Text},
			{Name: "company_id", ColumnType: dbtype.BigInt, IsForeignKey: true,
				ReferredTable: refTable("company"), ReferredColumn: refTable("id"), ReferredColumnType: colType(dbtype.BigInt)},
		}},
		"company": schema.TableStats{Table: "company", Columns: []schema.TableColumnStat{
			{Name: "id", ColumnType: dbtype.BigInt},
			{Name: "name", ColumnType: dbtype.Text},
		}},
	}
}

func TestResolveSingleLevel(t *testing.T) {
	refs, err := Resolve(context.Background(), fixture(), "parent", []string{"id", "name", "company_id.name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected exactly one root reference, got %d", len(refs))
	}
	ref := refs[0]
	if ref.ReferringColumn != "company_id" || ref.ReferredTable != "company" || ref.ReferredColumn != "id" {
		t.Fatalf("unexpected reference: %+v", ref)
	}
	if len(ref.Nested) != 0 {
		t.Fatalf("expected no nested references for a single-level path, got %v", ref.Nested)
	}
}

func TestResolveTwoLevels(t *testing.T) {
	refs, err := Resolve(context.Background(), fixture(), "child", []string{"id", "name", "parent_id.company_id.name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected one root reference, got %d", len(refs))
	}
	root := refs[0]
	if root.ReferringColumn != "parent_id" || root.ReferredTable != "parent" {
		t.Fatalf("unexpected root: %+v", root)
	}
	if len(root.Nested) != 1 {
		t.Fatalf("expected one nested reference, got %d", len(root.Nested))
	}
	nested := root.Nested[0]
	if nested.ReferringColumn != "company_id" || nested.ReferredTable != "company" {
		t.Fatalf("unexpected nested reference: %+v", nested)
	}
}

func TestResolveIgnoresPlainColumns(t *testing.T) {
	refs, err := Resolve(context.Background(), fixture(), "parent", []string{"id", "name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected no references for plain columns, got %v", refs)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	cols := []string{"parent_id.company_id.name", "id"}
	first, err := Resolve(context.Background(), fixture(), "child", cols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Resolve(context.Background(), fixture(), "child", cols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) || first[0].ReferringColumn != second[0].ReferringColumn {
		t.Fatalf("expected deterministic resolution, got %v vs %v", first, second)
	}
}

func TestFindTranslatesDotPath(t *testing.T) {
	refs, err := Resolve(context.Background(), fixture(), "parent", []string{"company_id.name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	node, terminal, ok := Find(refs, "parent", "company_id.name")
	if !ok {
		t.Fatalf("expected to find company_id.name")
	}
	if node.ReferredTable != "company" || terminal != "name" {
		t.Fatalf("unexpected find result: node=%+v terminal=%q", node, terminal)
	}
}

func TestFindMissesPlainColumn(t *testing.T) {
	_, _, ok := Find(nil, "parent", "name")
	if ok {
		t.Fatalf("expected plain column to miss")
	}
}

func TestJoinFlattensForest(t *testing.T) {
	refs, err := Resolve(context.Background(), fixture(), "child", []string{"parent_id.company_id.name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := Join(refs, func(r Reference) string {
		return "INNER JOIN " + r.ReferredTable
	}, " ")
	want := "INNER JOIN parent INNER JOIN company"
	if joined != want {
		t.Fatalf("Join() = %q, want %q", joined, want)
	}
}
