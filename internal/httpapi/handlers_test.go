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
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/log"
	"github.com/kaibyao/pgrest/internal/schema"
	"github.com/kaibyao/pgrest/internal/sqlbuild"
)

type fakeCache map[string]schema.TableStats

func (f fakeCache) Fetch(_ context.Context, table string) (schema.TableStats, error) {
	return f[table], nil
}

func (f fakeCache) Reset(_ context.Context) error { return nil }

func (f fakeCache) Tables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	return names, nil
}

type fakeRunner struct {
	lastStmt     sqlbuild.Statement
	lastWantRows bool
	result       dbtype.QueryResult
	err          error
}

func (f *fakeRunner) Run(_ context.Context, stmt sqlbuild.Statement, wantRows bool) (dbtype.QueryResult, error) {
	f.lastStmt = stmt
	f.lastWantRows = wantRows
	return f.result, f.err
}

func fixtureCache() fakeCache {
	return fakeCache{
		"users": schema.TableStats{
			Table: "users",
			Columns: []schema.TableColumnStat{
				{Name: "id", ColumnType: dbtype.BigInt},
				{Name: "name", ColumnType: dbtype.Text},
				{Name: "age", ColumnType: dbtype.Int},
			},
			PrimaryKey: []string{"id"},
		},
	}
}

func newTestServer(runner *fakeRunner) *Server {
	return NewServer(Config{EnableSQLEndpoint: true, EnableCacheResetEndpoint: true}, fixtureCache(), runner, mustLogger(), false)
}

func mustLogger() log.Logger {
	l, err := log.NewStdLogger(&strings.Builder{}, &strings.Builder{}, "error")
	if err != nil {
		panic(err)
	}
	return l
}

func TestHandleRootListsTablesAndEndpoints(t *testing.T) {
	s := newTestServer(&fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"users"`) {
		t.Errorf("expected tables list to include users, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"/sql"`) {
		t.Errorf("expected endpoints list to include /sql, got %s", w.Body.String())
	}
}

func TestHandleTableGetWithoutColumnsReturnsStats(t *testing.T) {
	s := newTestServer(&fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"primary_key":["id"]`) {
		t.Errorf("expected table stats body, got %s", w.Body.String())
	}
}

func TestHandleTableGetWithColumnsBuildsSelect(t *testing.T) {
	runner := &fakeRunner{result: dbtype.RowsResult([]dbtype.RowValues{{{Column: "id", Value: int64(1)}}})}
	s := newTestServer(runner)
	req := httptest.NewRequest(http.MethodGet, "/users?columns=id,name&limit=5", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !runner.lastWantRows {
		t.Errorf("expected SELECT to request rows")
	}
	if !strings.Contains(runner.lastStmt.SQL, "LIMIT 5") {
		t.Errorf("expected LIMIT 5 in SQL, got %s", runner.lastStmt.SQL)
	}
}

func TestHandleTableGetRejectsEmptyCSVElement(t *testing.T) {
	s := newTestServer(&fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/users?columns=id,,name", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "INCORRECT_REQUEST_BODY") {
		t.Errorf("expected INCORRECT_REQUEST_BODY code, got %s", w.Body.String())
	}
}

func TestHandleInsertCountsRowsAcrossBatches(t *testing.T) {
	runner := &fakeRunner{result: dbtype.CountResult(1)}
	s := NewServer(Config{InsertBatchSize: 1}, fixtureCache(), runner, mustLogger(), false)
	body := strings.NewReader(`[{"name":"a","age":1},{"name":"b","age":2}]`)
	req := httptest.NewRequest(http.MethodPost, "/users", body)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"num_rows":2`) {
		t.Errorf("got %s", w.Body.String())
	}
}

func TestHandleDeleteRequiresConfirmDelete(t *testing.T) {
	s := newTestServer(&fakeRunner{})
	req := httptest.NewRequest(http.MethodDelete, "/users", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "REQUIRED_PARAMETER_MISSING") {
		t.Errorf("got %s", w.Body.String())
	}
}

func TestHandleDeleteWithConfirmDeletePasses(t *testing.T) {
	runner := &fakeRunner{result: dbtype.CountResult(1)}
	s := newTestServer(runner)
	req := httptest.NewRequest(http.MethodDelete, "/users?confirm_delete=true&where=age%20%3E%2018", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(runner.lastStmt.SQL, "DELETE FROM users") {
		t.Errorf("got %s", runner.lastStmt.SQL)
	}
}

func TestHandleExecuteRejectsWrongContentType(t *testing.T) {
	s := newTestServer(&fakeRunner{})
	req := httptest.NewRequest(http.MethodPost, "/sql", strings.NewReader("select 1"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "INVALID_CONTENT_TYPE") {
		t.Errorf("got %s", w.Body.String())
	}
}

func TestHandleExecutePassesRawStatementThrough(t *testing.T) {
	runner := &fakeRunner{result: dbtype.CountResult(0)}
	s := newTestServer(runner)
	req := httptest.NewRequest(http.MethodPost, "/sql?is_return_rows=false", strings.NewReader("vacuum;"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if runner.lastStmt.SQL != "vacuum;" {
		t.Errorf("got %q", runner.lastStmt.SQL)
	}
}

func TestHandleResetCacheDisabledReturns404(t *testing.T) {
	s := NewServer(Config{EnableCacheResetEndpoint: false}, fixtureCache(), &fakeRunner{}, mustLogger(), false)
	req := httptest.NewRequest(http.MethodGet, "/reset_table_stats_cache", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected the route to not be mounted at all (404), got %d", w.Code)
	}
}
