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
	"net/url"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

func TestOpenDirectRequiresDatabaseURL(t *testing.T) {
	_, err := Open(context.Background(), Config{Kind: KindDirect}, noop.NewTracerProvider().Tracer(""), "test")
	if err == nil {
		t.Fatal("expected an error when --database-url is missing")
	}
	if !strings.Contains(err.Error(), "database-url") {
		t.Errorf("got %q", err.Error())
	}
}

func TestOpenAlloyDBRequiresInstanceCoordinates(t *testing.T) {
	_, err := Open(context.Background(), Config{Kind: KindAlloyDB}, noop.NewTracerProvider().Tracer(""), "test")
	if err == nil {
		t.Fatal("expected an error when AlloyDB instance coordinates are missing")
	}
	if !strings.Contains(err.Error(), "alloydb-project") {
		t.Errorf("got %q", err.Error())
	}
}

func TestOpenCloudSQLRequiresInstanceCoordinates(t *testing.T) {
	_, err := Open(context.Background(), Config{Kind: KindCloudSQL}, noop.NewTracerProvider().Tracer(""), "test")
	if err == nil {
		t.Fatal("expected an error when Cloud SQL instance coordinates are missing")
	}
	if !strings.Contains(err.Error(), "cloudsql-project") {
		t.Errorf("got %q", err.Error())
	}
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(context.Background(), Config{Kind: "bogus"}, noop.NewTracerProvider().Tracer(""), "test")
	if err == nil {
		t.Fatal("expected an error for an unknown connector kind")
	}
}

func TestOpenCloudSQLRequiresDatabaseUser(t *testing.T) {
	cfg := Config{
		Kind:             KindCloudSQL,
		CloudSQLProject:  "proj",
		CloudSQLRegion:   "us-central1",
		CloudSQLInstance: "inst",
		Database:         "app",
	}
	_, err := Open(context.Background(), cfg, noop.NewTracerProvider().Tracer(""), "test")
	if err == nil || !strings.Contains(err.Error(), "database-user") {
		t.Fatalf("expected a database-user error, got %v", err)
	}
}

func TestBuildDirectConnStringAppliesSSLModeAndQueryParams(t *testing.T) {
	got, err := buildDirectConnString("postgres://user@host/db", "require", map[string]string{"connect_timeout": "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("unexpected error parsing result: %v", err)
	}
	if q := u.Query(); q.Get("sslmode") != "require" || q.Get("connect_timeout") != "5" {
		t.Fatalf("expected sslmode and connect_timeout set, got %q", u.RawQuery)
	}
}

func TestBuildDirectConnStringDoesNotOverwriteExistingSSLMode(t *testing.T) {
	got, err := buildDirectConnString("postgres://user@host/db?sslmode=disable", "require", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("unexpected error parsing result: %v", err)
	}
	if q := u.Query(); q.Get("sslmode") != "disable" {
		t.Fatalf("expected existing sslmode=disable to be preserved, got %q", q.Get("sslmode"))
	}
}

func TestBuildDirectConnStringLeavesURLUnchangedWithoutParams(t *testing.T) {
	const raw = "postgres://user@host/db"
	got, err := buildDirectConnString(raw, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != raw {
		t.Fatalf("expected untouched URL %q, got %q", raw, got)
	}
}
