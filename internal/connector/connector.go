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

// Package connector builds the single *pgxpool.Pool the rest of the server
// runs against, dialing PostgreSQL either directly via a libpq URL or through
// the AlloyDB / Cloud SQL Go connectors.
package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Kind selects how the pool dials PostgreSQL.
type Kind string

const (
	KindDirect   Kind = "direct"
	KindAlloyDB  Kind = "alloydb"
	KindCloudSQL Kind = "cloudsql"
)

// Config is the full set of flags cmd/ collects for --connector and its
// per-kind companions. The validate tags are enforced in Open before any
// dialer runs, the same required-field contract the teacher's source
// configs enforced via a YAML decoder's embedded validator.
type Config struct {
	Kind Kind `validate:"required,oneof=direct alloydb cloudsql"`

	// DatabaseURL is the libpq connection URL used by KindDirect.
	DatabaseURL string `validate:"required_if=Kind direct"`
	SSLMode     string
	// QueryParams are additional libpq query parameters folded into
	// DatabaseURL when not already present there (e.g. connect_timeout).
	QueryParams map[string]string

	AlloyDBProject  string `validate:"required_if=Kind alloydb"`
	AlloyDBRegion   string `validate:"required_if=Kind alloydb"`
	AlloyDBCluster  string `validate:"required_if=Kind alloydb"`
	AlloyDBInstance string `validate:"required_if=Kind alloydb"`

	CloudSQLProject  string `validate:"required_if=Kind cloudsql"`
	CloudSQLRegion   string `validate:"required_if=Kind cloudsql"`
	CloudSQLInstance string `validate:"required_if=Kind cloudsql"`

	// User/Password/Database are only consulted by the AlloyDB and Cloud SQL
	// connectors; KindDirect takes everything from DatabaseURL. User is left
	// optional for alloydb, which falls back to the IAM principal from
	// Application Default Credentials when it's empty.
	User     string `validate:"required_if=Kind cloudsql"`
	Password string
	Database string `validate:"required_unless=Kind direct"`
}

// configFlagNames maps a Config field name to the flag that sets it, so a
// failed validation can be reported back in terms the operator recognizes.
var configFlagNames = map[string]string{
	"Kind":             "--connector",
	"DatabaseURL":      "--database-url",
	"AlloyDBProject":   "--alloydb-project",
	"AlloyDBRegion":    "--alloydb-region",
	"AlloyDBCluster":   "--alloydb-cluster",
	"AlloyDBInstance":  "--alloydb-instance",
	"CloudSQLProject":  "--cloudsql-project",
	"CloudSQLRegion":   "--cloudsql-region",
	"CloudSQLInstance": "--cloudsql-instance",
	"User":             "--database-user",
	"Database":         "--database-name",
}

var configValidator = validator.New()

// validateConfig enforces Config's validate tags, translating any failure
// into the flag names an operator would need to set.
func validateConfig(cfg Config) error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("invalid connector configuration: %w", err)
	}

	seen := make(map[string]bool)
	var flags []string
	for _, fe := range verrs {
		name := configFlagNames[fe.Field()]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		flags = append(flags, name)
	}
	sort.Strings(flags)
	return fmt.Errorf("invalid connector configuration for --connector=%s: %s required", cfg.Kind, strings.Join(flags, ", "))
}

// Open builds a pool for cfg.Kind. versionString is embedded in the
// connector user agent so Google's server-side metrics can attribute
// traffic to this build.
func Open(ctx context.Context, cfg Config, tracer trace.Tracer, versionString string) (*pgxpool.Pool, error) {
	if cfg.Kind == "" {
		cfg.Kind = KindDirect
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool
	var err error

	switch cfg.Kind {
	case KindDirect:
		pool, err = openDirect(ctx, tracer, cfg)
	case KindAlloyDB:
		pool, err = openAlloyDB(ctx, tracer, cfg, versionString)
	case KindCloudSQL:
		pool, err = openCloudSQL(ctx, tracer, cfg, versionString)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect successfully: %w", err)
	}
	return pool, nil
}

// initConnectionSpan starts a span around a single connector dial, the way
// every source-specific dialer in the example pack does.
func initConnectionSpan(ctx context.Context, tracer trace.Tracer, kind Kind) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pgrest/connector/Initialize", trace.WithAttributes(
		attribute.String("connector.kind", string(kind)),
	))
}
