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

// Package executor is the Executor: it acquires a connection, prepares and
// runs a rendered statement, and either streams the result set back
// through the Type Marshaller or reports the affected-row count.
package executor

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kaibyao/pgrest/internal/apierr"
	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/sqlbuild"
)

// Executor runs rendered statements against a connection pool. Connection
// lifetime is scoped to one Run call: a pooled acquire/release per
// request, not a single long-lived connection.
type Executor struct {
	Pool *pgxpool.Pool
}

// New constructs an Executor over pool.
func New(pool *pgxpool.Pool) *Executor {
	return &Executor{Pool: pool}
}

// Run executes stmt. When wantRows is true the result set is materialized
// into dbtype.QueryResult's row-set shape; otherwise the statement runs as
// an Exec and the affected-row count is returned.
func (e *Executor) Run(ctx context.Context, stmt sqlbuild.Statement, wantRows bool) (dbtype.QueryResult, error) {
	args, err := bindArgs(stmt.Binds)
	if err != nil {
		return dbtype.QueryResult{}, err
	}

	conn, err := e.Pool.Acquire(ctx)
	if err != nil {
		return dbtype.QueryResult{}, apierr.DatabaseError(err)
	}
	defer conn.Release()

	if !wantRows {
		tag, err := conn.Exec(ctx, stmt.SQL, args...)
		if err != nil {
			return dbtype.QueryResult{}, apierr.DatabaseError(err)
		}
		return dbtype.CountResult(tag.RowsAffected()), nil
	}

	rows, err := conn.Query(ctx, stmt.SQL, args...)
	if err != nil {
		return dbtype.QueryResult{}, apierr.DatabaseError(err)
	}
	defer rows.Close()

	result, err := materialize(rows, conn.Conn().TypeMap())
	if err != nil {
		return dbtype.QueryResult{}, err
	}
	return dbtype.RowsResult(result), nil
}

func bindArgs(binds []dbtype.TypedColumnValue) ([]any, error) {
	args := make([]any, len(binds))
	for i, b := range binds {
		arg, err := b.BindArg()
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return args, nil
}

func materialize(rows pgx.Rows, typeMap *pgtype.Map) ([]dbtype.RowValues, error) {
	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	colTypes := make([]dbtype.ColumnType, len(fields))
	for i, f := range fields {
		names[i] = f.Name
		colTypes[i] = columnTypeForOID(typeMap, f.DataTypeOID)
	}

	var out []dbtype.RowValues
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, apierr.DatabaseError(err)
		}
		row := make(dbtype.RowValues, 0, len(values))
		for i, v := range values {
			cell, err := dbtype.CellToJSON(colTypes[i], v)
			if err != nil {
				return nil, err
			}
			row = append(row, dbtype.NamedValue{Column: names[i], Value: cell})
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.DatabaseError(err)
	}
	return out, nil
}

// columnTypeForOID resolves a wire type OID to the closed ColumnType tag
// via the connection's registered type map, falling back to Text for
// anything outside the set the marshaller understands (e.g. a column type
// the schema cache also wouldn't recognize).
func columnTypeForOID(typeMap *pgtype.Map, oid uint32) dbtype.ColumnType {
	t, ok := typeMap.TypeForOID(oid)
	if !ok {
		return dbtype.Text
	}
	if colType, ok := dbtype.FromPostgresTypeName(t.Name); ok {
		return colType
	}
	return dbtype.Text
}
