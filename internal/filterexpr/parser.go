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

package filterexpr

import (
	"fmt"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v2"
	"github.com/kaibyao/pgrest/internal/apierr"
)

// Parse turns a raw filter query-string value into an Expr tree. The caller
// decides whether an absent filter means Empty; Parse itself always wraps
// filter as a throwaway SELECT statement and hands it to the real
// PostgreSQL grammar, so operator precedence and literal syntax always
// match what the server would accept — including an empty string, which
// produces a dangling WHERE and fails to parse. Only the WHERE clause of
// the resulting AST is kept. Any failure — grammar rejection, a subquery,
// or a shape this package does not model — surfaces as INVALID_SQL_SYNTAX
// with the original filter as the offender.
func Parse(filter string) (Expr, error) {
	expr, err := parse(filter)
	if err != nil {
		return nil, apierr.InvalidSQLSyntax(filter, err)
	}
	return expr, nil
}

func parse(filter string) (Expr, error) {
	wrapped := "SELECT * FROM _ WHERE " + filter
	result, err := pgquery.Parse(wrapped)
	if err != nil {
		return nil, err
	}
	if len(result.Stmts) != 1 {
		return nil, fmt.Errorf("filter must be a single expression")
	}

	selectNode, ok := result.Stmts[0].Stmt.Node.(*pgquery.Node_SelectStmt)
	if !ok {
		return nil, fmt.Errorf("filter did not parse to a selection expression")
	}
	where := selectNode.SelectStmt.WhereClause
	if where == nil {
		return nil, fmt.Errorf("filter is empty")
	}

	return convert(where)
}

func convert(node *pgquery.Node) (Expr, error) {
	if node == nil {
		return nil, fmt.Errorf("unexpected nil expression node")
	}

	switch n := node.Node.(type) {
	case *pgquery.Node_AConst:
		return convertAConst(n.AConst)

	case *pgquery.Node_ColumnRef:
		return convertColumnRef(n.ColumnRef)

	case *pgquery.Node_BoolExpr:
		return convertBoolExpr(n.BoolExpr)

	case *pgquery.Node_AExpr:
		return convertAExpr(n.AExpr)

	case *pgquery.Node_NullTest:
		return convertNullTest(n.NullTest)

	case *pgquery.Node_TypeCast:
		return convertTypeCast(n.TypeCast)

	case *pgquery.Node_FuncCall:
		return convertFuncCall(n.FuncCall)

	case *pgquery.Node_CaseExpr:
		return convertCaseExpr(n.CaseExpr)

	case *pgquery.Node_CollateClause:
		return convertCollateClause(n.CollateClause)

	case *pgquery.Node_List:
		return convertList(n.List)

	case *pgquery.Node_SubLink:
		return nil, fmt.Errorf("subqueries are not supported in filter expressions")

	default:
		return nil, fmt.Errorf("unsupported expression node: %T", n)
	}
}

func convertAConst(c *pgquery.A_Const) (Expr, error) {
	switch v := c.Val.(type) {
	case *pgquery.A_Const_Ival:
		return Value{Literal: v.Ival.Ival}, nil
	case *pgquery.A_Const_Fval:
		return Value{Literal: v.Fval.Fval}, nil
	case *pgquery.A_Const_Boolval:
		return Value{Literal: v.Boolval.Boolval}, nil
	case *pgquery.A_Const_Sval:
		return Value{Literal: v.Sval.Sval}, nil
	case *pgquery.A_Const_Bsval:
		return Value{Literal: v.Bsval.Bsval}, nil
	case nil:
		return Value{Literal: nil}, nil
	default:
		return nil, fmt.Errorf("unsupported constant value: %#v", v)
	}
}

func convertColumnRef(ref *pgquery.ColumnRef) (Expr, error) {
	var path []string
	star := false
	for _, f := range ref.Fields {
		switch field := f.Node.(type) {
		case *pgquery.Node_String_:
			path = append(path, field.String_.Str)
		case *pgquery.Node_AStar:
			star = true
		default:
			return nil, fmt.Errorf("unsupported column reference segment: %#v", field)
		}
	}
	if star {
		return QualifiedWildcard{Path: path}, nil
	}
	if len(path) == 1 {
		return Identifier{Name: path[0]}, nil
	}
	return CompoundIdentifier{Path: path}, nil
}

func convertBoolExpr(expr *pgquery.BoolExpr) (Expr, error) {
	if expr.Boolop == pgquery.BoolExprType_NOT_EXPR {
		inner, err := convert(expr.Args[0])
		if err != nil {
			return nil, err
		}
		return UnaryOp{Op: "NOT", Expr: inner}, nil
	}

	left, err := convert(expr.Args[0])
	if err != nil {
		return nil, err
	}
	op := "AND"
	if expr.Boolop == pgquery.BoolExprType_OR_EXPR {
		op = "OR"
	}
	result := left
	for _, arg := range expr.Args[1:] {
		right, err := convert(arg)
		if err != nil {
			return nil, err
		}
		result = BinaryOp{Left: result, Op: op, Right: right}
	}
	return result, nil
}

func convertAExpr(expr *pgquery.A_Expr) (Expr, error) {
	var opName string
	if len(expr.Name) > 0 {
		if s, ok := expr.Name[0].Node.(*pgquery.Node_String_); ok {
			opName = s.String_.Str
		}
	}

	switch expr.Kind {
	case pgquery.A_Expr_Kind_AEXPR_BETWEEN, pgquery.A_Expr_Kind_AEXPR_NOT_BETWEEN:
		target, err := convert(expr.Lexpr)
		if err != nil {
			return nil, err
		}
		bounds, err := convert(expr.Rexpr)
		if err != nil {
			return nil, err
		}
		list, ok := bounds.(listExpr)
		if !ok || len(list) != 2 {
			return nil, fmt.Errorf("BETWEEN requires exactly two bounds")
		}
		return Between{
			Expr:    target,
			Low:     list[0],
			High:    list[1],
			Negated: expr.Kind == pgquery.A_Expr_Kind_AEXPR_NOT_BETWEEN,
		}, nil

	case pgquery.A_Expr_Kind_AEXPR_IN:
		target, err := convert(expr.Lexpr)
		if err != nil {
			return nil, err
		}
		items, err := convert(expr.Rexpr)
		if err != nil {
			return nil, err
		}
		list, ok := items.(listExpr)
		if !ok {
			return nil, fmt.Errorf("IN requires a list of values")
		}
		return InList{Expr: target, List: []Expr(list), Negated: opName == "<>"}, nil

	case pgquery.A_Expr_Kind_AEXPR_OP, pgquery.A_Expr_Kind_AEXPR_LIKE, pgquery.A_Expr_Kind_AEXPR_ILIKE:
		left, err := convert(expr.Lexpr)
		if err != nil {
			return nil, err
		}
		right, err := convert(expr.Rexpr)
		if err != nil {
			return nil, err
		}
		op := strings.ToLower(opName)
		if expr.Kind == pgquery.A_Expr_Kind_AEXPR_LIKE {
			op = "like"
		} else if expr.Kind == pgquery.A_Expr_Kind_AEXPR_ILIKE {
			op = "ilike"
		}
		return BinaryOp{Left: left, Op: op, Right: right}, nil

	default:
		return nil, fmt.Errorf("unsupported operator kind in filter expression: %d", expr.Kind)
	}
}

// listExpr is an internal-only Expr variant used to carry the elements of a
// parenthesized list (IN (...), BETWEEN x AND y) up through convert before
// its caller unpacks it into the public InList/Between shape.
type listExpr []Expr

func (listExpr) isExpr() {}

func convertList(list *pgquery.List) (Expr, error) {
	items := make(listExpr, 0, len(list.Items))
	for _, item := range list.Items {
		expr, err := convert(item)
		if err != nil {
			return nil, err
		}
		items = append(items, expr)
	}
	return items, nil
}

func convertNullTest(test *pgquery.NullTest) (Expr, error) {
	inner, err := convert(test.Arg)
	if err != nil {
		return nil, err
	}
	if test.Nulltesttype == pgquery.NullTestType_IS_NOT_NULL {
		return IsNotNull{Expr: inner}, nil
	}
	return IsNull{Expr: inner}, nil
}

func convertTypeCast(cast *pgquery.TypeCast) (Expr, error) {
	inner, err := convert(cast.Arg)
	if err != nil {
		return nil, err
	}
	return Cast{Expr: inner, Type: typeName(cast.TypeName)}, nil
}

func typeName(tn *pgquery.TypeName) string {
	if tn == nil {
		return ""
	}
	var parts []string
	for _, n := range tn.Names {
		if s, ok := n.Node.(*pgquery.Node_String_); ok {
			parts = append(parts, s.String_.Str)
		}
	}
	return strings.Join(parts, ".")
}

func convertFuncCall(call *pgquery.FuncCall) (Expr, error) {
	var nameParts []string
	for _, n := range call.Funcname {
		if s, ok := n.Node.(*pgquery.Node_String_); ok {
			nameParts = append(nameParts, s.String_.Str)
		}
	}
	name := strings.Join(nameParts, ".")

	// EXTRACT(field FROM expr) desugars to date_part('field', expr) in the
	// raw parser; recover the original shape rather than exposing the
	// desugared function call.
	if (name == "date_part" || name == "pg_catalog.date_part") && len(call.Args) == 2 {
		if fieldNode, ok := call.Args[0].Node.(*pgquery.Node_AConst); ok {
			if sval, ok := fieldNode.AConst.Val.(*pgquery.A_Const_Sval); ok {
				inner, err := convert(call.Args[1])
				if err != nil {
					return nil, err
				}
				return Extract{Field: sval.Sval.Sval, Expr: inner}, nil
			}
		}
	}

	args := make([]Expr, 0, len(call.Args))
	for _, a := range call.Args {
		arg, err := convert(a)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return Function{Name: name, Args: args}, nil
}

func convertCaseExpr(c *pgquery.CaseExpr) (Expr, error) {
	var conditions, results []Expr
	for _, w := range c.Args {
		whenNode, ok := w.Node.(*pgquery.Node_CaseWhen)
		if !ok {
			return nil, fmt.Errorf("unsupported CASE WHEN node: %#v", w)
		}
		cond, err := convert(whenNode.CaseWhen.Expr)
		if err != nil {
			return nil, err
		}
		result, err := convert(whenNode.CaseWhen.Result)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
		results = append(results, result)
	}

	var elseExpr Expr = Value{Literal: nil}
	if c.Defresult != nil {
		var err error
		elseExpr, err = convert(c.Defresult)
		if err != nil {
			return nil, err
		}
	}

	return Case{Conditions: conditions, Results: results, Else: elseExpr}, nil
}

func convertCollateClause(c *pgquery.CollateClause) (Expr, error) {
	inner, err := convert(c.Arg)
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, n := range c.Collname {
		if s, ok := n.Node.(*pgquery.Node_String_); ok {
			parts = append(parts, s.String_.Str)
		}
	}
	return Collate{Expr: inner, Collation: strings.Join(parts, ".")}, nil
}
