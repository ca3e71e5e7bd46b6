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

// Package httpapi is the HTTP Surface: a chi router translating the REST
// table (GET/POST/PUT/DELETE /{table}, POST /sql, GET /reset_table_stats_cache)
// onto the Orchestrator, which sequences stats lookup, FK resolution,
// statement building and execution for every request.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/kaibyao/pgrest/internal/dbtype"
	"github.com/kaibyao/pgrest/internal/log"
	"github.com/kaibyao/pgrest/internal/schema"
	"github.com/kaibyao/pgrest/internal/sqlbuild"
)

// StatementRunner is the Executor's contract as the orchestrator needs it.
// Accepting the interface (rather than *executor.Executor) keeps httpapi
// testable without a live pgxpool.Pool.
type StatementRunner interface {
	Run(ctx context.Context, stmt sqlbuild.Statement, wantRows bool) (dbtype.QueryResult, error)
}

// Server is the Orchestrator: it holds the Stats Cache and the Executor and
// exposes them as a chi.Router over the REST surface.
type Server struct {
	cfg    Config
	cache  schema.Cache
	runner StatementRunner
	logger log.Logger
	root   chi.Router
}

// NewServer builds the router. jsonLogs mirrors the teacher's
// httplog.Options split between a human-readable and a GCP-style JSON
// request log.
func NewServer(cfg Config, cache schema.Cache, runner StatementRunner, logger log.Logger, jsonLogs bool) *Server {
	s := &Server{cfg: cfg, cache: cache, runner: runner, logger: logger}

	httpOpts := httplog.Options{Concise: true, RequestHeaders: true, MessageFieldName: "message"}
	if jsonLogs {
		httpOpts.JSON = true
		httpOpts.SourceFieldName = "logging.googleapis.com/sourceLocation"
		httpOpts.TimeFieldName = "timestamp"
		httpOpts.LevelFieldName = "severity"
	}
	reqLogger := httplog.NewLogger("httplog", httpOpts)

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(reqLogger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/table", s.handleListTables)
	if cfg.EnableCacheResetEndpoint {
		r.Get("/reset_table_stats_cache", s.handleResetCache)
	}
	if cfg.EnableSQLEndpoint {
		r.Post("/sql", s.handleExecute)
	}

	r.Route("/{table}", func(r chi.Router) {
		r.Get("/", s.handleTableGet)
		r.Post("/", s.handleInsert)
		r.Put("/", s.handleUpdate)
		r.Delete("/", s.handleDelete)
	})

	s.root = r
	return s
}

// Router exposes the underlying chi.Router so cmd/ can hand it to http.Serve.
func (s *Server) Router() http.Handler { return s.root }
