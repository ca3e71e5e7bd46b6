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

// Package filterexpr parses the `where` query-string value into a small
// typed expression tree the statement builders can walk, rewrite, and
// render. Parsing is delegated to a real PostgreSQL-dialect parser rather
// than a hand-rolled grammar, so operator precedence and literal syntax
// always match what Postgres itself would accept.
package filterexpr

// Expr is one node of a parsed filter tree. The concrete variants below are
// the closed set the builders know how to render and rewrite; anything
// outside it is rejected during parsing.
type Expr interface {
	isExpr()
}

// Identifier is a single unqualified column reference, e.g. `name`.
type Identifier struct {
	Name string
}

// CompoundIdentifier is a dotted path, e.g. `company_id.name`. Path holds
// each segment in order. The foreign-key resolver is the only component
// that interprets the path semantically; the parser just preserves it.
type CompoundIdentifier struct {
	Path []string
}

// QualifiedWildcard is `table.*`.
type QualifiedWildcard struct {
	Path []string
}

// Value is a literal: string, integer, float, bool, or null.
type Value struct {
	Literal any
}

// BinaryOp is `left op right`, e.g. `age > 18`.
type BinaryOp struct {
	Left  Expr
	Op    string
	Right Expr
}

// UnaryOp is `op expr`, e.g. `NOT active`.
type UnaryOp struct {
	Op   string
	Expr Expr
}

// IsNull is `expr IS NULL`.
type IsNull struct {
	Expr Expr
}

// IsNotNull is `expr IS NOT NULL`.
type IsNotNull struct {
	Expr Expr
}

// InList is `expr IN (list...)`, or `expr NOT IN (list...)` when Negated.
type InList struct {
	Expr    Expr
	List    []Expr
	Negated bool
}

// Between is `expr BETWEEN low AND high`, or `NOT BETWEEN` when Negated.
type Between struct {
	Expr    Expr
	Low     Expr
	High    Expr
	Negated bool
}

// Cast is `expr::type`.
type Cast struct {
	Expr Expr
	Type string
}

// Function is `name(args...)`.
type Function struct {
	Name string
	Args []Expr
}

// Case is `CASE WHEN conditions[i] THEN results[i] ... ELSE else END`.
type Case struct {
	Conditions []Expr
	Results    []Expr
	Else       Expr
}

// Collate is `expr COLLATE "collation"`.
type Collate struct {
	Expr      Expr
	Collation string
}

// Extract is `EXTRACT(field FROM expr)`.
type Extract struct {
	Field string
	Expr  Expr
}

// Nested is a parenthesized sub-expression, `(expr)`. Builders re-emit the
// parentheses verbatim so operator precedence in the original filter text
// is preserved.
type Nested struct {
	Expr Expr
}

func (Identifier) isExpr()         {}
func (CompoundIdentifier) isExpr() {}
func (QualifiedWildcard) isExpr()  {}
func (Value) isExpr()              {}
func (BinaryOp) isExpr()           {}
func (UnaryOp) isExpr()            {}
func (IsNull) isExpr()             {}
func (IsNotNull) isExpr()          {}
func (InList) isExpr()             {}
func (Between) isExpr()            {}
func (Cast) isExpr()               {}
func (Function) isExpr()           {}
func (Case) isExpr()               {}
func (Collate) isExpr()            {}
func (Extract) isExpr()            {}
func (Nested) isExpr()             {}

// Empty is the sentinel empty filter tree: the zero-length identifier.
// Builders skip emitting a WHERE clause entirely when the tree equals it.
var Empty Expr = Identifier{Name: ""}

// IsEmpty reports whether expr is the Empty sentinel or the Go zero value
// (nil) — a caller that never set a filter at all means the same thing as
// one that explicitly built the sentinel.
func IsEmpty(expr Expr) bool {
	if expr == nil {
		return true
	}
	id, ok := expr.(Identifier)
	return ok && id.Name == ""
}

// Walk visits every node in expr and its descendants, depth-first,
// calling visit on each one. DotPaths uses it to collect the dot-paths a
// filter touches before the foreign-key resolver runs.
func Walk(expr Expr, visit func(Expr)) {
	if expr == nil {
		return
	}
	visit(expr)
	switch e := expr.(type) {
	case BinaryOp:
		Walk(e.Left, visit)
		Walk(e.Right, visit)
	case UnaryOp:
		Walk(e.Expr, visit)
	case IsNull:
		Walk(e.Expr, visit)
	case IsNotNull:
		Walk(e.Expr, visit)
	case InList:
		Walk(e.Expr, visit)
		for _, item := range e.List {
			Walk(item, visit)
		}
	case Between:
		Walk(e.Expr, visit)
		Walk(e.Low, visit)
		Walk(e.High, visit)
	case Cast:
		Walk(e.Expr, visit)
	case Function:
		for _, arg := range e.Args {
			Walk(arg, visit)
		}
	case Case:
		for _, c := range e.Conditions {
			Walk(c, visit)
		}
		for _, r := range e.Results {
			Walk(r, visit)
		}
		Walk(e.Else, visit)
	case Collate:
		Walk(e.Expr, visit)
	case Extract:
		Walk(e.Expr, visit)
	case Nested:
		Walk(e.Expr, visit)
	}
}

// DotPaths collects every dotted column path referenced anywhere in expr —
// the set the foreign-key resolver must resolve before the builder can
// render the filter with FK-qualified column names.
func DotPaths(expr Expr) []string {
	var out []string
	seen := map[string]bool{}
	add := func(path []string) {
		joined := joinDots(path)
		if !seen[joined] {
			seen[joined] = true
			out = append(out, joined)
		}
	}
	Walk(expr, func(e Expr) {
		switch n := e.(type) {
		case CompoundIdentifier:
			add(n.Path)
		case QualifiedWildcard:
			add(n.Path)
		}
	})
	return out
}

func joinDots(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
