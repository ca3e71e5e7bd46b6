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

// Package identifier implements the lexical rules that let the rest of
// pgrest treat table names, column expressions and aliases as a structural
// whitelist instead of something that needs escaping before it reaches SQL.
package identifier

import (
	"regexp"
	"strings"

	"github.com/kaibyao/pgrest/internal/apierr"
)

var (
	tableNamePattern  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	columnExprPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_().*]*$`)
)

// reservedWord is the only keyword the validator needs to reject outright;
// it collides with the literal path segment "/table" in the HTTP surface.
const reservedWord = "table"

// ValidateTableName checks a table name against the identifier whitelist:
// lowercase snake_case, not the reserved word "table".
func ValidateTableName(name string) error {
	if name == reservedWord {
		return apierr.SQLIdentifierKeyword(name)
	}
	if !tableNamePattern.MatchString(name) {
		return apierr.InvalidSQLIdentifier(name)
	}
	return nil
}

// ValidateColumnExpression checks a column expression: identifiers, dotted
// foreign-key paths, and aggregate-call parentheses are allowed; a trailing
// "." or "*" is not, and the bare reserved word is rejected.
func ValidateColumnExpression(expr string) error {
	if expr == reservedWord {
		return apierr.SQLIdentifierKeyword(expr)
	}
	if !columnExprPattern.MatchString(expr) {
		return apierr.InvalidSQLIdentifier(expr)
	}
	if strings.HasSuffix(expr, ".") || strings.HasSuffix(expr, "*") {
		return apierr.InvalidSQLIdentifier(expr)
	}
	return nil
}

// SplitAlias detects "expr AS alias" (case-insensitive) or the shortened
// "expr alias" form. It returns ok=false when there is no alias, and fails
// when the split between expression and alias is ambiguous or either side
// is not itself a valid column expression.
func SplitAlias(raw string) (original, alias string, ok bool, err error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 1:
		return "", "", false, nil
	case 2:
		original, alias = fields[0], fields[1]
	case 3:
		if !strings.EqualFold(fields[1], "as") {
			return "", "", false, apierr.InvalidSQLIdentifier(raw)
		}
		original, alias = fields[0], fields[2]
	default:
		return "", "", false, apierr.InvalidSQLIdentifier(raw)
	}

	if err := ValidateColumnExpression(original); err != nil {
		return "", "", false, err
	}
	if err := ValidateColumnExpression(alias); err != nil {
		return "", "", false, err
	}
	return original, alias, true, nil
}
