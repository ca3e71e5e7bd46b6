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

package executor

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kaibyao/pgrest/internal/dbtype"
)

func TestColumnTypeForOIDResolvesKnownTypes(t *testing.T) {
	tm := pgtype.NewMap()

	cases := []struct {
		oid  uint32
		want dbtype.ColumnType
	}{
		{pgtype.Int8OID, dbtype.BigInt},
		{pgtype.Int4OID, dbtype.Int},
		{pgtype.TextOID, dbtype.Text},
		{pgtype.BoolOID, dbtype.Bool},
		{pgtype.UUIDOID, dbtype.Uuid},
	}
	for _, c := range cases {
		if got := columnTypeForOID(tm, c.oid); got != c.want {
			t.Errorf("columnTypeForOID(%d) = %v, want %v", c.oid, got, c.want)
		}
	}
}

func TestColumnTypeForOIDFallsBackToText(t *testing.T) {
	tm := pgtype.NewMap()
	if got := columnTypeForOID(tm, 999999); got != dbtype.Text {
		t.Fatalf("expected fallback to Text for an unregistered OID, got %v", got)
	}
}

func TestBindArgsUnwrapsTypedColumnValues(t *testing.T) {
	args, err := bindArgs([]dbtype.TypedColumnValue{
		dbtype.Null(dbtype.Text),
		{ColumnType: dbtype.Int, State: dbtype.NotNullable, Value: int64(7)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 2 || args[0] != nil || args[1] != int64(7) {
		t.Fatalf("unexpected bound args: %+v", args)
	}
}

func TestBindArgsRejectsDefaultSentinel(t *testing.T) {
	_, err := bindArgs([]dbtype.TypedColumnValue{dbtype.Default(dbtype.Text)})
	if err == nil {
		t.Fatalf("expected an error binding the DEFAULT sentinel as a parameter")
	}
}
