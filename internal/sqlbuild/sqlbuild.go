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

// Package sqlbuild renders validated request intents (SelectParams,
// InsertParams, ...) into SQL text plus an ordered bind-value list. Every
// builder validates the table name first, resolves foreign-key dot-paths
// through fkresolver, and never interpolates a user-controlled literal —
// literals only ever appear as positional placeholders bound through
// dbtype.
package sqlbuild

import (
	"fmt"
	"strings"

	"github.com/kaibyao/pgrest/internal/apierr"
	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/fkresolver"
	"github.com/kaibyao/pgrest/internal/identifier"
	"github.com/kaibyao/pgrest/internal/schema"
)

// DefaultLimit and defaultOffset are the SELECT builder's defaults when the
// caller does not specify them explicitly.
const (
	DefaultLimit  = 10000
	defaultOffset = 0
)

// Statement is the rendered shape every builder returns: SQL text plus the
// binds in positional order, starting at $1 unless the caller supplies a
// starting position (UPDATE numbers SET placeholders before WHERE ones).
type Statement struct {
	SQL   string
	Binds []dbtype.TypedColumnValue
}

// getDBColumnStr renders one column expression for the requesting table:
// split any alias first, resolve the (possibly dot-path) expression through
// the FK forest into "referred_table.referred_column", or prefix with the
// requesting table when prefixWithTable and no FK applies. When emitAlias,
// append `AS "name"` using the user-facing name (alias if given, the
// original expression otherwise) so FK rewrites keep the JSON key stable.
func getDBColumnStr(expr, table string, fks []fkresolver.Reference, emitAlias, prefixWithTable bool) (string, error) {
	original, alias, hasAlias, err := identifier.SplitAlias(expr)
	if err != nil {
		return "", err
	}

	columnExpr := expr
	displayName := expr
	if hasAlias {
		columnExpr = original
		displayName = alias
	}

	resolved := columnExpr
	if node, terminal, ok := fkresolver.Find(fks, table, columnExpr); ok {
		resolved = fmt.Sprintf("%s.%s", node.ReferredTable, terminal)
	} else if prefixWithTable {
		resolved = fmt.Sprintf("%s.%s", table, columnExpr)
	}

	if !emitAlias {
		return resolved, nil
	}
	return fmt.Sprintf("%s AS %s", resolved, quoteIdent(displayName)), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// renderColumnList applies getDBColumnStr to every entry, joining with ", ".
func renderColumnList(cols []string, table string, fks []fkresolver.Reference, emitAlias, prefixWithTable bool) (string, error) {
	rendered := make([]string, 0, len(cols))
	for _, c := range cols {
		r, err := getDBColumnStr(c, table, fks, emitAlias, prefixWithTable)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, r)
	}
	return strings.Join(rendered, ", "), nil
}

// validateTable is the first step every builder performs.
func validateTable(table string) error {
	return identifier.ValidateTableName(table)
}

// joinClause renders the FK forest as the builder's INNER JOIN list. Each
// level of the forest contributes one INNER JOIN ... ON ... per referred
// table; when several FK columns at that level point at the same referred
// table, their equalities are combined with AND inside that one ON clause.
// The joins of nested references follow those of their level.
func joinClause(parentTable string, refs []fkresolver.Reference) string {
	if len(refs) == 0 {
		return ""
	}
	var b strings.Builder
	var walk func(string, []fkresolver.Reference)
	walk = func(parent string, rs []fkresolver.Reference) {
		var order []string
		conds := map[string][]string{}
		for _, r := range rs {
			if conds[r.ReferredTable] == nil {
				order = append(order, r.ReferredTable)
			}
			conds[r.ReferredTable] = append(conds[r.ReferredTable], fmt.Sprintf("%s.%s = %s.%s", parent, r.ReferringColumn, r.ReferredTable, r.ReferredColumn))
		}
		for _, t := range order {
			fmt.Fprintf(&b, " INNER JOIN %s ON %s", t, strings.Join(conds[t], " AND "))
		}
		for _, r := range rs {
			walk(r.ReferredTable, r.Nested)
		}
	}
	walk(parentTable, refs)
	return b.String()
}

// fromTables lists every table the FK forest joins in, in pre-order,
// deduplicated — used by UPDATE/DELETE's FROM/USING clause.
func fromTables(refs []fkresolver.Reference) []string {
	var out []string
	seen := map[string]bool{}
	var walk func([]fkresolver.Reference)
	walk = func(rs []fkresolver.Reference) {
		for _, r := range rs {
			if !seen[r.ReferredTable] {
				seen[r.ReferredTable] = true
				out = append(out, r.ReferredTable)
			}
			walk(r.Nested)
		}
	}
	walk(refs)
	return out
}

// equiJoinConditions renders the FK equi-join predicates for UPDATE/DELETE's
// WHERE clause (where there is no INNER JOIN syntax available), one
// "table.col = referred.col" per FK in the forest.
func equiJoinConditions(parentTable string, refs []fkresolver.Reference) []string {
	var out []string
	var walk func(string, []fkresolver.Reference)
	walk = func(parent string, rs []fkresolver.Reference) {
		for _, r := range rs {
			out = append(out, fmt.Sprintf("%s.%s = %s.%s", parent, r.ReferringColumn, r.ReferredTable, r.ReferredColumn))
			walk(r.ReferredTable, r.Nested)
		}
	}
	walk(parentTable, refs)
	return out
}

// requireNonEmpty is the INSERT/UPDATE/DELETE check for a list parameter
// such as returning_columns: when present, it must be non-empty.
func requireNonEmpty(name string, values []string, present bool) error {
	if present && len(values) == 0 {
		return apierr.RequiredParameterMissing(name)
	}
	return nil
}

// lookupColumnType resolves a (possibly FK-qualified) column expression to
// the TableColumnStat it refers to, following the FK forest when the
// expression resolved through one.
func lookupColumnType(expr, table string, stats schema.TableStats, fks []fkresolver.Reference) (dbtype.ColumnType, bool) {
	if node, terminal, ok := fkresolver.Find(fks, table, expr); ok {
		col, ok := node.ReferredStats.Column(terminal)
		if !ok {
			return "", false
		}
		return col.ColumnType, true
	}
	col, ok := stats.Column(expr)
	if !ok {
		return "", false
	}
	return col.ColumnType, true
}
