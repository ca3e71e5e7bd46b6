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

package httpapi

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/kaibyao/pgrest/internal/apierr"
	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/filterexpr"
	"github.com/kaibyao/pgrest/internal/sqlbuild"
)

// endpoints is the fixed list GET / advertises alongside the table names.
var endpoints = []string{"/", "/table", "/{table}", "/sql", "/reset_table_stats_cache"}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := err.(*apierr.APIError)
	if !ok {
		apiErr = apierr.DatabaseError(err)
	}
	if apiErr.Internal && s.logger != nil {
		s.logger.Error(apiErr.Error(), "path", r.URL.Path)
	}
	_ = render.Render(w, r, apiErr)
}

func parseFilter(q url.Values) (filterexpr.Expr, error) {
	if !q.Has("where") {
		return filterexpr.Empty, nil
	}
	raw := q.Get("where")
	expr, err := filterexpr.Parse(raw)
	if err != nil {
		return nil, apierr.InvalidSQLSyntax(raw, err)
	}
	return expr, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	tables, err := s.cache.Tables(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"endpoints": endpoints, "tables": tables})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.cache.Tables(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, tables)
}

func (s *Server) handleResetCache(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Reset(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleTableGet serves GET /{table}: table stats when "columns" is absent,
// a SELECT otherwise.
func (s *Server) handleTableGet(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	q := r.URL.Query()

	columns, err := csvParam(q, "columns")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(columns) == 0 {
		stats, err := s.cache.Fetch(r.Context(), table)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		render.JSON(w, r, stats)
		return
	}

	filter, err := parseFilter(q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	distinct, err := csvParam(q, "distinct")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	groupBy, err := csvParam(q, "group_by")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	orderBy, err := csvParam(q, "order_by")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	stmt, err := sqlbuild.BuildSelect(r.Context(), s.cache, sqlbuild.SelectParams{
		Table:    table,
		Columns:  columns,
		Filter:   filter,
		Distinct: distinct,
		GroupBy:  groupBy,
		OrderBy:  orderBy,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.runner.Run(r.Context(), stmt, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	rows, err := decodeRowArray(r.Body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	conflictAction := scalarParam(q, "conflict_action")
	conflictTarget, err := csvParam(q, "conflict_target")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	returningColumns, err := csvParam(q, "returning_columns")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	statements, err := sqlbuild.BuildInsert(r.Context(), s.cache, sqlbuild.InsertParams{
		Table:            table,
		Rows:             rows,
		ConflictAction:   conflictAction,
		ConflictTarget:   conflictTarget,
		ReturningColumns: returningColumns,
	}, s.cfg.InsertBatchSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	wantRows := len(returningColumns) > 0
	var totalRows int64
	var allRows []dbtype.RowValues
	for _, stmt := range statements {
		result, err := s.runner.Run(r.Context(), stmt, wantRows)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if wantRows {
			allRows = append(allRows, result.Rows...)
		} else {
			totalRows += result.NumRows
		}
	}

	if wantRows {
		render.JSON(w, r, dbtype.RowsResult(allRows))
		return
	}
	render.JSON(w, r, dbtype.CountResult(totalRows))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	cells, err := decodeSingleRow(r.Body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter, err := parseFilter(q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	returningColumns, err := csvParam(q, "returning_columns")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	stmt, err := sqlbuild.BuildUpdate(r.Context(), s.cache, sqlbuild.UpdateParams{
		Table:            table,
		ColumnValues:     cells,
		Filter:           filter,
		ReturningColumns: returningColumns,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.runner.Run(r.Context(), stmt, len(returningColumns) > 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	q := r.URL.Query()

	filter, err := parseFilter(q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	returningColumns, err := csvParam(q, "returning_columns")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	stmt, err := sqlbuild.BuildDelete(r.Context(), s.cache, sqlbuild.DeleteParams{
		Table:            table,
		Filter:           filter,
		ConfirmDelete:    q.Has("confirm_delete"),
		ReturningColumns: returningColumns,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.runner.Run(r.Context(), stmt, len(returningColumns) > 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	contentType := strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0])
	if contentType != "text/plain" {
		s.respondError(w, r, apierr.InvalidContentType(contentType))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, r, apierr.IncorrectRequestBody(err.Error()))
		return
	}

	isReturnRows, err := boolParam(r.URL.Query(), "is_return_rows")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	stmt := sqlbuild.BuildExecute(sqlbuild.ExecuteParams{Statement: string(body), IsReturnRows: isReturnRows})
	result, err := s.runner.Run(r.Context(), stmt, isReturnRows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}
