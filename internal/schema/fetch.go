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
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kaibyao/pgrest/internal/apierr"
	"github.com/kaibyao/pgrest/internal/dbtype"
)

// ListUserTables enumerates every base table in the configured database
// (used by GET /table and by cached-policy bootstrap).
func ListUserTables(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, listUserTablesSQL)
	if err != nil {
		return nil, apierr.DatabaseError(err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apierr.DatabaseError(err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.DatabaseError(err)
	}
	return tables, nil
}

// fetchOne runs the three metadata queries (SQL1-3), scoped to a single
// table, and joins the results into a TableStats. This is the Uncached
// policy's lookup, and is also the fallback the Cached policy uses on a
// cache miss. The constraints query is scoped to both the table's own
// constraints and any other table's foreign key that targets it, so
// ReferencedBy falls out of the same round trip instead of a second query.
func fetchOne(ctx context.Context, pool *pgxpool.Pool, table string) (TableStats, error) {
	byTable, err := loadColumnStats(ctx, pool, "AND c.table_name = $1", table)
	if err != nil {
		return TableStats{}, err
	}
	constraintsByTable, err := loadConstraints(ctx, pool,
		"AND (cls.relname = $1 OR NULLIF(con.confrelid, 0)::regclass::text = $1)", table)
	if err != nil {
		return TableStats{}, err
	}
	indexesByTable, err := loadIndexes(ctx, pool, "AND t.relname = $1", table)
	if err != nil {
		return TableStats{}, err
	}

	referencedBy := computeReferencedBy(constraintsByTable)[table]
	return assemble(table, byTable[table], constraintsByTable[table], indexesByTable[table], referencedBy), nil
}

// fetchAll batch-loads stats for every table named in tables in one round
// trip per statement kind — the Cached policy's bootstrap/refresh path.
// ReferencedBy is derived from the already-fetched constraints rather than
// queried again per table: loadConstraints with no filter returns every FK
// in the database, so inverting it by ReferredTable covers every table at
// once.
func fetchAll(ctx context.Context, pool *pgxpool.Pool, tables []string) (map[string]TableStats, error) {
	byTable, err := loadColumnStats(ctx, pool, "", nil)
	if err != nil {
		return nil, err
	}
	constraintsByTable, err := loadConstraints(ctx, pool, "", nil)
	if err != nil {
		return nil, err
	}
	indexesByTable, err := loadIndexes(ctx, pool, "", nil)
	if err != nil {
		return nil, err
	}
	referencedByTable := computeReferencedBy(constraintsByTable)

	out := make(map[string]TableStats, len(tables))
	for _, table := range tables {
		out[table] = assemble(table, byTable[table], constraintsByTable[table], indexesByTable[table], referencedByTable[table])
	}
	return out, nil
}

// computeReferencedBy inverts an already-fetched constraint map by
// ReferredTable, so the tables that reference each table fall out without
// a second query.
func computeReferencedBy(constraintsByTable map[string][]Constraint) map[string][]ReferencedBy {
	out := make(map[string][]ReferencedBy)
	for _, constraints := range constraintsByTable {
		for _, c := range constraints {
			if c.Kind != ConstraintForeignKey || c.ReferredTable == nil {
				continue
			}
			for i, col := range c.Columns {
				var referredCol string
				if i < len(c.ReferredColumns) {
					referredCol = c.ReferredColumns[i]
				}
				out[*c.ReferredTable] = append(out[*c.ReferredTable], ReferencedBy{
					Table:          c.Table,
					Column:         col,
					ReferredColumn: referredCol,
				})
			}
		}
	}
	return out
}

func assemble(table string, cols []TableColumnStat, constraints []Constraint, indexes []TableIndex, referencedBy []ReferencedBy) TableStats {
	var pk []string
	for _, c := range constraints {
		if c.Kind == ConstraintPrimaryKey {
			pk = c.Columns
			break
		}
	}
	return TableStats{
		Table:        table,
		Columns:      cols,
		Constraints:  constraints,
		Indexes:      indexes,
		PrimaryKey:   pk,
		ReferencedBy: referencedBy,
	}
}

func queryArgs(filterArg any) []any {
	if filterArg == nil {
		return nil
	}
	return []any{filterArg}
}

func loadColumnStats(ctx context.Context, pool *pgxpool.Pool, filter string, filterArg any) (map[string][]TableColumnStat, error) {
	sql := fmt.Sprintf(columnStatsSQLTemplate, filter)
	rows, err := pool.Query(ctx, sql, queryArgs(filterArg)...)
	if err != nil {
		return nil, apierr.DatabaseError(err)
	}
	defer rows.Close()

	out := make(map[string][]TableColumnStat)
	for rows.Next() {
		var (
			tableName, columnName, udtName      string
			columnDefault                       *string
			isNullable                          bool
			charMaxLength, charOctetLength      *int
			foreignTableName, foreignColumnName *string
		)
		if err := rows.Scan(&tableName, &columnName, &udtName, &columnDefault, &isNullable,
			&charMaxLength, &charOctetLength, &foreignTableName, &foreignColumnName); err != nil {
			return nil, apierr.DatabaseError(err)
		}

		tag, ok := dbtype.FromPostgresTypeName(udtName)
		if !ok {
			tag = dbtype.Text
		}

		stat := TableColumnStat{
			Name:            columnName,
			ColumnType:      tag,
			Default:         columnDefault,
			Nullable:        isNullable,
			CharMaxLength:   charMaxLength,
			CharOctetLength: charOctetLength,
		}
		if foreignTableName != nil && foreignColumnName != nil {
			stat.IsForeignKey = true
			stat.ReferredTable = foreignTableName
			stat.ReferredColumn = foreignColumnName
		}
		out[tableName] = append(out[tableName], stat)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.DatabaseError(err)
	}
	return out, nil
}

func loadConstraints(ctx context.Context, pool *pgxpool.Pool, filter string, filterArg any) (map[string][]Constraint, error) {
	sql := fmt.Sprintf(constraintsSQLTemplate, filter)
	rows, err := pool.Query(ctx, sql, queryArgs(filterArg)...)
	if err != nil {
		return nil, apierr.DatabaseError(err)
	}
	defer rows.Close()

	out := make(map[string][]Constraint)
	for rows.Next() {
		var (
			tableName, name, kind, definition string
			columns, referredColumns          []string
			referredTable                     *string
		)
		if err := rows.Scan(&tableName, &name, &kind, &definition, &columns, &referredTable, &referredColumns); err != nil {
			return nil, apierr.DatabaseError(err)
		}
		out[tableName] = append(out[tableName], Constraint{
			Name:            name,
			Table:           tableName,
			Columns:         columns,
			Kind:            constraintKindFromChar(kind),
			Definition:      definition,
			ReferredTable:   referredTable,
			ReferredColumns: referredColumns,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.DatabaseError(err)
	}
	return out, nil
}

func loadIndexes(ctx context.Context, pool *pgxpool.Pool, filter string, filterArg any) (map[string][]TableIndex, error) {
	sql := fmt.Sprintf(indexesSQLTemplate, filter)
	rows, err := pool.Query(ctx, sql, queryArgs(filterArg)...)
	if err != nil {
		return nil, apierr.DatabaseError(err)
	}
	defer rows.Close()

	out := make(map[string][]TableIndex)
	for rows.Next() {
		var (
			tableName, name, accessMethod string
			isUnique, isPrimary           bool
			columns                       []string
		)
		if err := rows.Scan(&tableName, &name, &isUnique, &isPrimary, &accessMethod, &columns); err != nil {
			return nil, apierr.DatabaseError(err)
		}
		out[tableName] = append(out[tableName], TableIndex{
			Name:         name,
			Columns:      columns,
			AccessMethod: accessMethod,
			IsPrimary:    isPrimary,
			IsUnique:     isUnique,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.DatabaseError(err)
	}
	return out, nil
}
