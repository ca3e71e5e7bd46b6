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

package schema

import (
	"context"
	"testing"

	"github.com/kaibyao/pgrest/internal/apierr"
	"github.com/kaibyao/pgrest/internal/dbtype"
)

func TestConstraintKindFromChar(t *testing.T) {
	tcs := map[string]ConstraintKind{
		"c": ConstraintCheck,
		"f": ConstraintForeignKey,
		"p": ConstraintPrimaryKey,
		"u": ConstraintUnique,
		"t": ConstraintTrigger,
		"x": ConstraintExclusion,
	}
	for in, want := range tcs {
		if got := constraintKindFromChar(in); got != want {
			t.Errorf("constraintKindFromChar(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAssembleDerivesPrimaryKey(t *testing.T) {
	cols := []TableColumnStat{{Name: "id", ColumnType: dbtype.BigInt}}
	constraints := []Constraint{
		{Name: "users_pkey", Kind: ConstraintPrimaryKey, Columns: []string{"id"}},
		{Name: "users_email_key", Kind: ConstraintUnique, Columns: []string{"email"}},
	}
	stats := assemble("users", cols, constraints, nil, nil)
	if len(stats.PrimaryKey) != 1 || stats.PrimaryKey[0] != "id" {
		t.Fatalf("expected primary key [id], got %v", stats.PrimaryKey)
	}
}

func TestComputeReferencedByInvertsConstraints(t *testing.T) {
	referredTable := "users"
	constraintsByTable := map[string][]Constraint{
		"users": {
			{Name: "users_pkey", Table: "users", Kind: ConstraintPrimaryKey, Columns: []string{"id"}},
		},
		"orders": {
			{
				Name: "orders_user_id_fkey", Table: "orders", Kind: ConstraintForeignKey,
				Columns: []string{"user_id"}, ReferredTable: &referredTable, ReferredColumns: []string{"id"},
			},
		},
	}

	referencedByTable := computeReferencedBy(constraintsByTable)
	got := referencedByTable["users"]
	if len(got) != 1 {
		t.Fatalf("expected one referencing table, got %v", got)
	}
	if got[0].Table != "orders" || got[0].Column != "user_id" || got[0].ReferredColumn != "id" {
		t.Fatalf("unexpected ReferencedBy entry: %+v", got[0])
	}
	if len(referencedByTable["orders"]) != 0 {
		t.Fatalf("did not expect orders to be referenced by anything")
	}
}

func TestTableStatsColumnLookup(t *testing.T) {
	stats := TableStats{Columns: []TableColumnStat{
		{Name: "id", ColumnType: dbtype.BigInt},
		{Name: "company_id", ColumnType: dbtype.BigInt, IsForeignKey: true},
	}}
	col, ok := stats.Column("company_id")
	if !ok || !col.IsForeignKey {
		t.Fatalf("expected to find foreign-key column company_id")
	}
	if _, ok := stats.Column("missing"); ok {
		t.Fatalf("expected missing column lookup to fail")
	}
	fks := stats.ForeignKeyColumns()
	if len(fks) != 1 || fks[0].Name != "company_id" {
		t.Fatalf("expected exactly one foreign-key column, got %v", fks)
	}
}

func TestCachedResetBeforeBootstrapFails(t *testing.T) {
	c := NewCached(nil, 0)
	err := c.Reset(context.Background())
	if err == nil {
		t.Fatalf("expected error resetting before bootstrap")
	}
	apiErr, ok := err.(*apierr.APIError)
	if !ok || apiErr.Code != apierr.CodeTableStatsCacheNotInitialzed {
		t.Fatalf("expected TABLE_STATS_CACHE_NOT_INITIALIZED, got %v", err)
	}
}

func TestUncachedResetIsUnsupported(t *testing.T) {
	u := &Uncached{}
	err := u.Reset(context.Background())
	apiErr, ok := err.(*apierr.APIError)
	if !ok || apiErr.Code != apierr.CodeTableStatsCacheNotEnabled {
		t.Fatalf("expected TABLE_STATS_CACHE_NOT_ENABLED, got %v", err)
	}
}
