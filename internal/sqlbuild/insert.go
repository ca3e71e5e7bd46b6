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

package sqlbuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaibyao/pgrest/internal/apierr"
	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/identifier"
	"github.com/kaibyao/pgrest/internal/schema"
)

// RowCell is one (column, value) pair of a request row. Rows are carried
// as ordered slices, not maps, so "insertion order of first appearance"
// when computing the column universe is well defined regardless of what
// JSON decoder produced them.
type RowCell struct {
	Column string
	Value  any
}

// ConflictNothing and ConflictUpdate are the two conflict_action values
// the INSERT builder accepts.
const (
	ConflictNothing = "nothing"
	ConflictUpdate  = "update"
)

// InsertParams is one INSERT request intent.
type InsertParams struct {
	Table            string
	Rows             [][]RowCell
	ConflictAction   *string
	ConflictTarget   []string
	ReturningColumns []string
}

// DefaultInsertBatchSize is used when the caller does not override the
// batch size via configuration.
const DefaultInsertBatchSize = 500

// BuildInsert renders p into one INSERT statement per batch of rows; the
// HTTP handler runs them in order, sums num_rows across batches and aborts
// the whole request at the first batch that fails (no partial rollback, no
// retry).
func BuildInsert(ctx context.Context, cache schema.Cache, p InsertParams, batchSize int) ([]Statement, error) {
	if err := validateTable(p.Table); err != nil {
		return nil, err
	}
	if len(p.Rows) == 0 {
		return nil, apierr.IncorrectRequestBody("rows must be a non-empty list of objects")
	}
	if err := validateConflictParams(p); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("returning_columns", p.ReturningColumns, p.ReturningColumns != nil); err != nil {
		return nil, err
	}

	universe := columnUniverse(p.Rows)
	for _, col := range universe {
		if err := identifier.ValidateColumnExpression(col); err != nil {
			return nil, err
		}
	}

	stats, err := cache.Fetch(ctx, p.Table)
	if err != nil {
		return nil, err
	}

	if batchSize <= 0 {
		batchSize = DefaultInsertBatchSize
	}

	var statements []Statement
	for start := 0; start < len(p.Rows); start += batchSize {
		end := start + batchSize
		if end > len(p.Rows) {
			end = len(p.Rows)
		}
		stmt, err := buildInsertBatch(p, universe, stats, p.Rows[start:end])
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

func validateConflictParams(p InsertParams) error {
	hasAction := p.ConflictAction != nil
	hasTarget := len(p.ConflictTarget) > 0
	if hasAction != hasTarget {
		return apierr.RequiredParameterMissing("conflict_action and conflict_target must be provided together")
	}
	if !hasAction {
		return nil
	}
	if *p.ConflictAction != ConflictNothing && *p.ConflictAction != ConflictUpdate {
		return apierr.IncorrectRequestBody("conflict_action must be \"nothing\" or \"update\"")
	}
	for _, col := range p.ConflictTarget {
		if strings.TrimSpace(col) == "" {
			return apierr.IncorrectRequestBody("conflict_target must not contain empty column names")
		}
	}
	return nil
}

func columnUniverse(rows [][]RowCell) []string {
	var out []string
	seen := map[string]bool{}
	for _, row := range rows {
		for _, cell := range row {
			if !seen[cell.Column] {
				seen[cell.Column] = true
				out = append(out, cell.Column)
			}
		}
	}
	return out
}

func buildInsertBatch(p InsertParams, universe []string, stats schema.TableStats, rows [][]RowCell) (Statement, error) {
	b := &binder{}

	tuples := make([]string, 0, len(rows))
	for _, row := range rows {
		byColumn := make(map[string]any, len(row))
		for _, cell := range row {
			byColumn[cell.Column] = cell.Value
		}

		cells := make([]string, 0, len(universe))
		for _, col := range universe {
			value, present := byColumn[col]
			if !present {
				cells = append(cells, "DEFAULT")
				continue
			}
			colType, ok := stats.Column(col)
			if !ok {
				return Statement{}, apierr.TableColumnTypeNotFound(col)
			}
			if value == nil {
				cells = append(cells, b.bind(dbtype.Null(colType.ColumnType)))
				continue
			}
			tcv, err := dbtype.FromJSON(value, colType.ColumnType)
			if err != nil {
				return Statement{}, err
			}
			cells = append(cells, b.bind(tcv))
		}
		tuples = append(tuples, "("+strings.Join(cells, ", ")+")")
	}

	quotedUniverse := make([]string, len(universe))
	for i, col := range universe {
		quotedUniverse[i] = quoteIdent(col)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES %s", p.Table, strings.Join(quotedUniverse, ", "), strings.Join(tuples, ", "))

	if p.ConflictAction != nil {
		quotedTarget := make([]string, len(p.ConflictTarget))
		for i, c := range p.ConflictTarget {
			quotedTarget[i] = quoteIdent(c)
		}
		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO ", strings.Join(quotedTarget, ", "))
		if *p.ConflictAction == ConflictNothing {
			sb.WriteString("NOTHING")
		} else {
			sets := make([]string, len(universe))
			for i, col := range universe {
				sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", quoteIdent(col), quoteIdent(col))
			}
			fmt.Fprintf(&sb, "UPDATE SET %s", strings.Join(sets, ", "))
		}
	}

	if len(p.ReturningColumns) > 0 {
		returning, err := renderColumnList(p.ReturningColumns, p.Table, nil, true, false)
		if err != nil {
			return Statement{}, err
		}
		fmt.Fprintf(&sb, " RETURNING %s", returning)
	}
	sb.WriteString(";")

	return Statement{SQL: sb.String(), Binds: b.binds}, nil
}
