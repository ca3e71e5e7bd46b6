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

	"github.com/kaibyao/pgrest/internal/fkresolver"
	"github.com/kaibyao/pgrest/internal/filterexpr"
	"github.com/kaibyao/pgrest/internal/identifier"
	"github.com/kaibyao/pgrest/internal/schema"
)

// SelectParams is one SELECT request intent. An empty Columns is the
// documented "return table stats instead of rows" contract; the caller
// (the orchestrator) is responsible for detecting that case before
// invoking BuildSelect.
type SelectParams struct {
	Table    string
	Columns  []string
	Filter   filterexpr.Expr
	Distinct []string
	GroupBy  []string
	OrderBy  []string
	Limit    *int
	Offset   *int
}

// BuildSelect renders p into `SELECT [DISTINCT ON (...)] cols FROM table
// [INNER JOIN ...]* [WHERE (...)] [GROUP BY ...] [ORDER BY ...] LIMIT n
// [OFFSET n]`.
func BuildSelect(ctx context.Context, cache schema.Cache, p SelectParams) (Statement, error) {
	if err := validateTable(p.Table); err != nil {
		return Statement{}, err
	}

	stats, err := cache.Fetch(ctx, p.Table)
	if err != nil {
		return Statement{}, err
	}

	allPaths := dotPathsOf(p.Columns, p.Distinct, p.GroupBy, orderByColumns(p.OrderBy))
	allPaths = append(allPaths, filterexpr.DotPaths(p.Filter)...)
	fks, err := fkresolver.Resolve(ctx, cache, p.Table, allPaths)
	if err != nil {
		return Statement{}, err
	}

	cols, err := renderColumnList(p.Columns, p.Table, fks, true, true)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if len(p.Distinct) > 0 {
		distinctCols, err := renderColumnList(p.Distinct, p.Table, fks, false, true)
		if err != nil {
			return Statement{}, err
		}
		fmt.Fprintf(&b, "DISTINCT ON (%s) ", distinctCols)
	}
	b.WriteString(cols)
	fmt.Fprintf(&b, " FROM %s", p.Table)
	b.WriteString(joinClause(p.Table, fks))

	where, binds, err := GetWhereString(p.Filter, p.Table, stats, fks, 0)
	if err != nil {
		return Statement{}, err
	}
	if where != "" {
		fmt.Fprintf(&b, " WHERE (%s)", where)
	}

	if len(p.GroupBy) > 0 {
		groupCols, err := renderColumnList(p.GroupBy, p.Table, fks, false, true)
		if err != nil {
			return Statement{}, err
		}
		fmt.Fprintf(&b, " GROUP BY %s", groupCols)
	}

	if len(p.OrderBy) > 0 {
		orderClause, err := renderOrderBy(p.OrderBy, p.Table, fks)
		if err != nil {
			return Statement{}, err
		}
		fmt.Fprintf(&b, " ORDER BY %s", orderClause)
	}

	limit := DefaultLimit
	if p.Limit != nil {
		limit = *p.Limit
	}
	fmt.Fprintf(&b, " LIMIT %d", limit)

	offset := defaultOffset
	if p.Offset != nil {
		offset = *p.Offset
	}
	if offset != 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}

	b.WriteString(";")
	return Statement{SQL: b.String(), Binds: binds}, nil
}

// orderByColumns strips the trailing direction keyword from each ORDER BY
// entry, leaving just the column part for FK dot-path discovery.
func orderByColumns(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		col, _ := splitOrderByEntry(e)
		out = append(out, col)
	}
	return out
}

func splitOrderByEntry(entry string) (column, direction string) {
	trimmed := strings.TrimSpace(entry)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasSuffix(lower, " asc"):
		return strings.TrimSpace(trimmed[:len(trimmed)-len(" asc")]), "ASC"
	case strings.HasSuffix(lower, " desc"):
		return strings.TrimSpace(trimmed[:len(trimmed)-len(" desc")]), "DESC"
	default:
		return trimmed, "ASC"
	}
}

func renderOrderBy(entries []string, table string, fks []fkresolver.Reference) (string, error) {
	rendered := make([]string, 0, len(entries))
	for _, e := range entries {
		col, dir := splitOrderByEntry(e)
		if err := identifier.ValidateColumnExpression(col); err != nil {
			return "", err
		}
		resolvedCol, err := getDBColumnStr(col, table, fks, false, true)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, fmt.Sprintf("%s %s", resolvedCol, dir))
	}
	return strings.Join(rendered, ", "), nil
}

func dotPathsOf(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		for _, c := range l {
			if strings.Contains(c, ".") {
				out = append(out, c)
			}
		}
	}
	return out
}
