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
	"regexp"
	"strings"

	"github.com/kaibyao/pgrest/internal/apierr"
	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/fkresolver"
	"github.com/kaibyao/pgrest/internal/filterexpr"
	"github.com/kaibyao/pgrest/internal/identifier"
	"github.com/kaibyao/pgrest/internal/schema"
)

// quotedLiteral matches a JSON string value that is itself quoted on both
// ends — the UPDATE builder's signal that the value is a literal string
// rather than a SQL expression.
var quotedLiteral = regexp.MustCompile(`^['"].+['"]$`)

// UpdateParams is one UPDATE request intent.
type UpdateParams struct {
	Table            string
	ColumnValues     []RowCell
	Filter           filterexpr.Expr
	ReturningColumns []string
}

// BuildUpdate renders p into an UPDATE statement. Each value in
// ColumnValues is classified: a quoted-string JSON value is a literal
// (the outer quotes are stripped and it is bound); an unquoted JSON string
// is treated as a SQL expression — possibly an FK dot-path — validated and
// resolved through the FK forest with no bind; any other JSON value is
// marshalled and bound. SET placeholders are numbered before WHERE ones.
func BuildUpdate(ctx context.Context, cache schema.Cache, p UpdateParams) (Statement, error) {
	if err := validateTable(p.Table); err != nil {
		return Statement{}, err
	}
	if len(p.ColumnValues) == 0 {
		return Statement{}, apierr.IncorrectRequestBody("column_values must be a non-empty object")
	}
	if err := requireNonEmpty("returning_columns", p.ReturningColumns, p.ReturningColumns != nil); err != nil {
		return Statement{}, err
	}

	stats, err := cache.Fetch(ctx, p.Table)
	if err != nil {
		return Statement{}, err
	}

	var exprPaths []string
	for _, cell := range p.ColumnValues {
		if expr, ok := asSQLExpression(cell.Value); ok && strings.Contains(expr, ".") {
			exprPaths = append(exprPaths, expr)
		}
	}
	exprPaths = append(exprPaths, filterexpr.DotPaths(p.Filter)...)
	fks, err := fkresolver.Resolve(ctx, cache, p.Table, exprPaths)
	if err != nil {
		return Statement{}, err
	}

	b := &binder{}
	sets := make([]string, 0, len(p.ColumnValues))
	for _, cell := range p.ColumnValues {
		if err := identifier.ValidateColumnExpression(cell.Column); err != nil {
			return Statement{}, err
		}

		if literal, ok := asLiteralString(cell.Value); ok {
			colType, ok := stats.Column(cell.Column)
			if !ok {
				return Statement{}, apierr.TableColumnTypeNotFound(cell.Column)
			}
			tcv, err := dbtype.FromJSON(literal, colType.ColumnType)
			if err != nil {
				return Statement{}, err
			}
			sets = append(sets, fmt.Sprintf("%s = %s", quoteIdent(cell.Column), b.bind(tcv)))
			continue
		}

		if expr, ok := asSQLExpression(cell.Value); ok {
			if err := identifier.ValidateColumnExpression(expr); err != nil {
				return Statement{}, err
			}
			resolved, err := getDBColumnStr(expr, p.Table, fks, false, true)
			if err != nil {
				return Statement{}, err
			}
			sets = append(sets, fmt.Sprintf("%s = %s", quoteIdent(cell.Column), resolved))
			continue
		}

		colType, ok := stats.Column(cell.Column)
		if !ok {
			return Statement{}, apierr.TableColumnTypeNotFound(cell.Column)
		}
		var tcv dbtype.TypedColumnValue
		if cell.Value == nil {
			tcv = dbtype.Null(colType.ColumnType)
		} else {
			tcv, err = dbtype.FromJSON(cell.Value, colType.ColumnType)
			if err != nil {
				return Statement{}, err
			}
		}
		sets = append(sets, fmt.Sprintf("%s = %s", quoteIdent(cell.Column), b.bind(tcv)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", p.Table, strings.Join(sets, ", "))

	joined := fromTables(fks)
	if len(joined) > 0 {
		fmt.Fprintf(&sb, " FROM %s", strings.Join(joined, ", "))
	}

	where, whereBinds, err := GetWhereString(p.Filter, p.Table, stats, fks, b.position)
	if err != nil {
		return Statement{}, err
	}
	b.binds = append(b.binds, whereBinds...)

	conditions := equiJoinConditions(p.Table, fks)
	if where != "" {
		conditions = append([]string{"(" + where + ")"}, conditions...)
	}
	if len(conditions) > 0 {
		fmt.Fprintf(&sb, " WHERE %s", strings.Join(conditions, " AND "))
	}

	if len(p.ReturningColumns) > 0 {
		returning, err := renderColumnList(p.ReturningColumns, p.Table, fks, true, false)
		if err != nil {
			return Statement{}, err
		}
		fmt.Fprintf(&sb, " RETURNING %s", returning)
	}
	sb.WriteString(";")

	return Statement{SQL: sb.String(), Binds: b.binds}, nil
}

// asLiteralString reports whether v is a JSON string quoted on both ends
// (the UPDATE builder's literal-string signal), returning the value with
// the outer quote pair stripped.
func asLiteralString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || !quotedLiteral.MatchString(s) {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// asSQLExpression reports whether v is a JSON string that is NOT a quoted
// literal — the UPDATE builder's signal to treat it as a SQL expression.
func asSQLExpression(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || quotedLiteral.MatchString(s) {
		return "", false
	}
	return s, true
}
