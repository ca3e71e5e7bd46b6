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
	"fmt"
	"strings"

	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/fkresolver"
	"github.com/kaibyao/pgrest/internal/filterexpr"
	"github.com/kaibyao/pgrest/internal/schema"
)

// binder numbers placeholders from an arbitrary starting position (UPDATE
// numbers SET placeholders before WHERE ones) and accumulates the ordered
// bind values the executor hands to the driver.
type binder struct {
	position int
	binds    []dbtype.TypedColumnValue
}

func (b *binder) bind(v dbtype.TypedColumnValue) string {
	b.position++
	b.binds = append(b.binds, v)
	return fmt.Sprintf("$%d", b.position)
}

// GetWhereString renders filter into SQL text with every identifier
// rewritten through the FK forest and every literal replaced by a
// positional placeholder bound to the TypedColumnValue of the column on
// the other side of its comparison. startPosition lets UPDATE continue
// numbering after its SET clause's placeholders.
func GetWhereString(filter filterexpr.Expr, table string, stats schema.TableStats, fks []fkresolver.Reference, startPosition int) (string, []dbtype.TypedColumnValue, error) {
	if filterexpr.IsEmpty(filter) {
		return "", nil, nil
	}
	b := &binder{position: startPosition}
	text, err := renderFilter(filter, table, stats, fks, b, nil)
	if err != nil {
		return "", nil, err
	}
	return text, b.binds, nil
}

func exprColumnType(e filterexpr.Expr, table string, stats schema.TableStats, fks []fkresolver.Reference) *dbtype.ColumnType {
	switch n := e.(type) {
	case filterexpr.Identifier:
		if ct, ok := lookupColumnType(n.Name, table, stats, fks); ok {
			return &ct
		}
	case filterexpr.CompoundIdentifier:
		if ct, ok := lookupColumnType(strings.Join(n.Path, "."), table, stats, fks); ok {
			return &ct
		}
	}
	return nil
}

func renderFilter(e filterexpr.Expr, table string, stats schema.TableStats, fks []fkresolver.Reference, b *binder, ctxType *dbtype.ColumnType) (string, error) {
	switch n := e.(type) {
	case filterexpr.Identifier:
		return getDBColumnStr(n.Name, table, fks, false, true)

	case filterexpr.CompoundIdentifier:
		return getDBColumnStr(strings.Join(n.Path, "."), table, fks, false, true)

	case filterexpr.QualifiedWildcard:
		return strings.Join(n.Path, ".") + ".*", nil

	case filterexpr.Value:
		colType := dbtype.Text
		if ctxType != nil {
			colType = *ctxType
		}
		if n.Literal == nil {
			return "NULL", nil
		}
		tcv, err := dbtype.FromJSON(n.Literal, colType)
		if err != nil {
			return "", err
		}
		return b.bind(tcv), nil

	case filterexpr.BinaryOp:
		ctx := exprColumnType(n.Left, table, stats, fks)
		if ctx == nil {
			ctx = exprColumnType(n.Right, table, stats, fks)
		}
		left, err := renderFilter(n.Left, table, stats, fks, b, ctx)
		if err != nil {
			return "", err
		}
		right, err := renderFilter(n.Right, table, stats, fks, b, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, renderOp(n.Op), right), nil

	case filterexpr.UnaryOp:
		inner, err := renderFilter(n.Expr, table, stats, fks, b, ctxType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s (%s)", renderOp(n.Op), inner), nil

	case filterexpr.IsNull:
		inner, err := renderFilter(n.Expr, table, stats, fks, b, ctxType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s) IS NULL", inner), nil

	case filterexpr.IsNotNull:
		inner, err := renderFilter(n.Expr, table, stats, fks, b, ctxType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s) IS NOT NULL", inner), nil

	case filterexpr.InList:
		ctx := exprColumnType(n.Expr, table, stats, fks)
		target, err := renderFilter(n.Expr, table, stats, fks, b, ctx)
		if err != nil {
			return "", err
		}
		items := make([]string, 0, len(n.List))
		for _, item := range n.List {
			rendered, err := renderFilter(item, table, stats, fks, b, ctx)
			if err != nil {
				return "", err
			}
			items = append(items, rendered)
		}
		op := "IN"
		if n.Negated {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", target, op, strings.Join(items, ", ")), nil

	case filterexpr.Between:
		ctx := exprColumnType(n.Expr, table, stats, fks)
		target, err := renderFilter(n.Expr, table, stats, fks, b, ctx)
		if err != nil {
			return "", err
		}
		low, err := renderFilter(n.Low, table, stats, fks, b, ctx)
		if err != nil {
			return "", err
		}
		high, err := renderFilter(n.High, table, stats, fks, b, ctx)
		if err != nil {
			return "", err
		}
		op := "BETWEEN"
		if n.Negated {
			op = "NOT BETWEEN"
		}
		return fmt.Sprintf("%s %s %s AND %s", target, op, low, high), nil

	case filterexpr.Cast:
		inner, err := renderFilter(n.Expr, table, stats, fks, b, ctxType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s)::%s", inner, n.Type), nil

	case filterexpr.Function:
		args := make([]string, 0, len(n.Args))
		for _, arg := range n.Args {
			rendered, err := renderFilter(arg, table, stats, fks, b, nil)
			if err != nil {
				return "", err
			}
			args = append(args, rendered)
		}
		return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", ")), nil

	case filterexpr.Case:
		var b2 strings.Builder
		b2.WriteString("CASE")
		for i := range n.Conditions {
			cond, err := renderFilter(n.Conditions[i], table, stats, fks, b, nil)
			if err != nil {
				return "", err
			}
			result, err := renderFilter(n.Results[i], table, stats, fks, b, ctxType)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b2, " WHEN %s THEN %s", cond, result)
		}
		if n.Else != nil {
			elseRendered, err := renderFilter(n.Else, table, stats, fks, b, ctxType)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b2, " ELSE %s", elseRendered)
		}
		b2.WriteString(" END")
		return b2.String(), nil

	case filterexpr.Collate:
		inner, err := renderFilter(n.Expr, table, stats, fks, b, ctxType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s COLLATE %s", inner, quoteIdent(n.Collation)), nil

	case filterexpr.Extract:
		inner, err := renderFilter(n.Expr, table, stats, fks, b, nil)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXTRACT(%s FROM %s)", n.Field, inner), nil

	case filterexpr.Nested:
		inner, err := renderFilter(n.Expr, table, stats, fks, b, ctxType)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s)", inner), nil

	default:
		return "", fmt.Errorf("unsupported filter expression node: %T", n)
	}
}

func renderOp(op string) string {
	switch strings.ToUpper(op) {
	case "LIKE":
		return "LIKE"
	case "ILIKE":
		return "ILIKE"
	case "NOT":
		return "NOT"
	default:
		return op
	}
}
