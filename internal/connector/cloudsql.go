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
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kaibyao/pgrest/internal/util"
	"go.opentelemetry.io/otel/trace"
)

// openCloudSQL dials a Cloud SQL for PostgreSQL instance through the Cloud
// SQL Go Connector, the same DialFunc-on-pgxpool.Config wiring used for
// AlloyDB, swapping in cloudsqlconn's dialer.
func openCloudSQL(ctx context.Context, tracer trace.Tracer, cfg Config, versionString string) (*pgxpool.Pool, error) {
	//nolint:all // Reassigned ctx
	ctx, span := initConnectionSpan(ctx, tracer, KindCloudSQL)
	defer span.End()

	var dsn string
	if cfg.Password == "" {
		dsn = fmt.Sprintf("user=%s dbname=%s sslmode=disable", cfg.User, cfg.Database)
	} else {
		dsn = fmt.Sprintf("user=%s password=%s dbname=%s sslmode=disable", cfg.User, cfg.Password, cfg.Database)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection uri: %w", err)
	}

	ctx = util.WithUserAgent(ctx, versionString)
	userAgent, err := util.UserAgentFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the Cloud SQL connector: %w", err)
	}

	instanceName := fmt.Sprintf("%s:%s:%s", cfg.CloudSQLProject, cfg.CloudSQLRegion, cfg.CloudSQLInstance)
	poolCfg.ConnConfig.DialFunc = func(ctx context.Context, _ string, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, instanceName)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
