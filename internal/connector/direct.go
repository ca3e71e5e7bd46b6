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

package connector

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/maps"
)

// openDirect dials PostgreSQL from a plain libpq URL, folding in --sslmode
// and --database-query-param for any key the URL doesn't already specify.
func openDirect(ctx context.Context, tracer trace.Tracer, cfg Config) (*pgxpool.Pool, error) {
	//nolint:all // Reassigned ctx
	ctx, span := initConnectionSpan(ctx, tracer, KindDirect)
	defer span.End()

	connString, err := buildDirectConnString(cfg.DatabaseURL, cfg.SSLMode, cfg.QueryParams)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return pool, nil
}

// buildDirectConnString clones queryParams (so the caller's map is never
// mutated), folds sslMode in under the "sslmode" key unless already present,
// and appends whatever remains to databaseURL for any key it doesn't already
// specify.
func buildDirectConnString(databaseURL, sslMode string, queryParams map[string]string) (string, error) {
	qp := maps.Clone(queryParams)
	if qp == nil {
		qp = map[string]string{}
	}
	if sslMode != "" {
		// Do not overwrite if the operator already set sslmode explicitly.
		if _, ok := qp["sslmode"]; !ok {
			qp["sslmode"] = sslMode
		}
	}
	if len(qp) == 0 {
		return databaseURL, nil
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("unable to parse --database-url: %w", err)
	}
	q := u.Query()
	for k, v := range qp {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
