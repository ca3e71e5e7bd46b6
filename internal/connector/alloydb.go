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
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"cloud.google.com/go/alloydbconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kaibyao/pgrest/internal/util"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2/google"
)

// openAlloyDB dials an AlloyDB for PostgreSQL instance through the AlloyDB
// Go Connector. When --database-user is empty it falls back to the email on
// Application Default Credentials and connects using AlloyDB's automatic
// IAM database authentication.
func openAlloyDB(ctx context.Context, tracer trace.Tracer, cfg Config, versionString string) (*pgxpool.Pool, error) {
	//nolint:all // Reassigned ctx
	ctx, span := initConnectionSpan(ctx, tracer, KindAlloyDB)
	defer span.End()

	user := cfg.User
	pass := cfg.Password
	var dsn string
	var err error
	if user == "" {
		user, err = alloyDBPrincipalEmail(ctx)
		if err != nil {
			return nil, fmt.Errorf("--database-user was not provided and could not be discovered from ADC: %w", err)
		}
	}
	if pass == "" {
		dsn = fmt.Sprintf("user=%s dbname=%s sslmode=disable", user, cfg.Database)
	} else {
		dsn = fmt.Sprintf("user=%s password=%s dbname=%s sslmode=disable", user, pass, cfg.Database)
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
	dialer, err := alloydbconn.NewDialer(ctx, alloydbconn.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the AlloyDB connector: %w", err)
	}

	instanceName := fmt.Sprintf("projects/%s/locations/%s/clusters/%s/instances/%s",
		cfg.AlloyDBProject, cfg.AlloyDBRegion, cfg.AlloyDBCluster, cfg.AlloyDBInstance)
	poolCfg.ConnConfig.DialFunc = func(ctx context.Context, _ string, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, instanceName)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// alloyDBPrincipalEmail finds the email associated with Application Default
// Credentials, used as the IAM database user when --database-user is unset.
func alloyDBPrincipalEmail(ctx context.Context) (string, error) {
	client, err := google.DefaultClient(ctx, "https://www.googleapis.com/auth/userinfo.email")
	if err != nil {
		return "", fmt.Errorf("failed to build ADC client: %w", err)
	}

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return "", fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("userinfo endpoint returned non-OK status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return "", fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if userInfo.Email == "" {
		return "", fmt.Errorf("userinfo response did not contain an email address")
	}
	return userInfo.Email, nil
}
