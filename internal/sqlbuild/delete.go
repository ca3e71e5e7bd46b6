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
	"github.com/kaibyao/pgrest/internal/fkresolver"
	"github.com/kaibyao/pgrest/internal/filterexpr"
	"github.com/kaibyao/pgrest/internal/schema"
)

// DeleteParams is one DELETE request intent. ConfirmDelete must be true —
// the HTTP layer sets it from whether confirm_delete is present, and
// BuildDelete rejects the request with REQUIRED_PARAMETER_MISSING when it
// is false.
type DeleteParams struct {
	Table            string
	Filter           filterexpr.Expr
	ConfirmDelete    bool
	ReturningColumns []string
}

// BuildDelete renders p into `DELETE FROM table [USING joined-tables]
// [WHERE (filter [AND fk-equi-joins])] [RETURNING cols]`.
func BuildDelete(ctx context.Context, cache schema.Cache, p DeleteParams) (Statement, error) {
	if err := validateTable(p.Table); err != nil {
		return Statement{}, err
	}
	if !p.ConfirmDelete {
		return Statement{}, apierr.RequiredParameterMissing("confirm_delete")
	}
	if err := requireNonEmpty("returning_columns", p.ReturningColumns, p.ReturningColumns != nil); err != nil {
		return Statement{}, err
	}

	stats, err := cache.Fetch(ctx, p.Table)
	if err != nil {
		return Statement{}, err
	}

	fks, err := fkresolver.Resolve(ctx, cache, p.Table, filterexpr.DotPaths(p.Filter))
	if err != nil {
		return Statement{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", p.Table)

	joined := fromTables(fks)
	if len(joined) > 0 {
		fmt.Fprintf(&sb, " USING %s", strings.Join(joined, ", "))
	}

	where, binds, err := GetWhereString(p.Filter, p.Table, stats, fks, 0)
	if err != nil {
		return Statement{}, err
	}

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

	return Statement{SQL: sb.String(), Binds: binds}, nil
}
