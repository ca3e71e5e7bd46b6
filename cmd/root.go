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

package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kaibyao/pgrest/internal/connector"
	"github.com/kaibyao/pgrest/internal/executor"
	"github.com/kaibyao/pgrest/internal/httpapi"
	"github.com/kaibyao/pgrest/internal/log"
	"github.com/kaibyao/pgrest/internal/schema"
	"github.com/kaibyao/pgrest/internal/telemetry"
	"github.com/kaibyao/pgrest/internal/telemetry/trace"
	"github.com/spf13/cobra"
)

var (
	// versionString indicates the version of this library.
	//go:embed version.txt
	versionString string
	// metadataString indicates additional build or distribution metadata.
	metadataString string
)

func init() {
	versionString = semanticVersion()
}

// semanticVersion returns the version of the CLI including a compile-time metadata.
func semanticVersion() string {
	v := strings.TrimSpace(versionString)
	if metadataString != "" {
		v += "+" + metadataString
	}
	return v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewCommand().Execute(); err != nil {
		exit := 1
		os.Exit(exit)
	}
}

// serveConfig is the full set of flags the serve command collects.
type serveConfig struct {
	Address string
	Port    int

	ConnectorKind connectorKind
	DatabaseURL   string
	SSLMode       string
	QueryParams   map[string]string

	AlloyDBProject  string
	AlloyDBRegion   string
	AlloyDBCluster  string
	AlloyDBInstance string

	CloudSQLProject  string
	CloudSQLRegion   string
	CloudSQLInstance string

	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string

	CacheTableStats           bool
	CacheResetIntervalSeconds int
	EnableSQLEndpoint         bool
	EnableCacheResetEndpoint  bool
	InsertBatchSize           int

	LogLevel      logLevel
	LoggingFormat logFormat
}

// Command represents an invocation of the CLI.
type Command struct {
	*cobra.Command

	cfg       serveConfig
	logger    log.Logger
	outStream io.Writer
	errStream io.Writer
}

// Option configures a Command at construction time.
type Option func(*Command)

// NewCommand returns a Command object representing an invocation of the CLI.
func NewCommand(opts ...Option) *Command {
	out := os.Stdout
	errW := os.Stderr

	baseCmd := &cobra.Command{
		Use:           "pgrest",
		Version:       versionString,
		SilenceErrors: true,
	}
	cmd := &Command{
		Command:   baseCmd,
		outStream: out,
		errStream: errW,
	}

	for _, o := range opts {
		o(cmd)
	}

	// set baseCmd out and err the same as cmd.
	baseCmd.SetOut(cmd.outStream)
	baseCmd.SetErr(cmd.errStream)

	baseCmd.AddCommand(newServeCommand(cmd))

	return cmd
}

// newServeCommand builds `pgrest serve`, the only subcommand: everything in
// the CLI surface exists to configure one long-running HTTP server.
func newServeCommand(cmd *Command) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the pgrest HTTP server.",
		RunE: func(*cobra.Command, []string) error {
			return run(cmd)
		},
	}

	flags := serveCmd.Flags()
	flags.StringVarP(&cmd.cfg.Address, "address", "a", "127.0.0.1", "Address of the interface the server will listen on.")
	flags.IntVarP(&cmd.cfg.Port, "port", "p", 5000, "Port the server will listen on.")

	flags.Var(&cmd.cfg.ConnectorKind, "connector", "How to dial PostgreSQL. Allowed: 'direct', 'alloydb', 'cloudsql'.")
	flags.StringVar(&cmd.cfg.DatabaseURL, "database-url", "", "libpq connection URL. Required when --connector is 'direct'.")
	flags.StringVar(&cmd.cfg.SSLMode, "sslmode", "", "sslmode to append to --database-url if it doesn't already specify one.")
	flags.StringToStringVar(&cmd.cfg.QueryParams, "database-query-param", nil, "Additional libpq query parameter to append to --database-url if not already present (repeatable, e.g. --database-query-param connect_timeout=5).")

	flags.StringVar(&cmd.cfg.AlloyDBProject, "alloydb-project", "", "GCP project of the AlloyDB cluster.")
	flags.StringVar(&cmd.cfg.AlloyDBRegion, "alloydb-region", "", "Region of the AlloyDB cluster.")
	flags.StringVar(&cmd.cfg.AlloyDBCluster, "alloydb-cluster", "", "Name of the AlloyDB cluster.")
	flags.StringVar(&cmd.cfg.AlloyDBInstance, "alloydb-instance", "", "Name of the AlloyDB instance.")

	flags.StringVar(&cmd.cfg.CloudSQLProject, "cloudsql-project", "", "GCP project of the Cloud SQL instance.")
	flags.StringVar(&cmd.cfg.CloudSQLRegion, "cloudsql-region", "", "Region of the Cloud SQL instance.")
	flags.StringVar(&cmd.cfg.CloudSQLInstance, "cloudsql-instance", "", "Name of the Cloud SQL instance.")

	flags.StringVar(&cmd.cfg.DatabaseUser, "database-user", "", "Database user. For --connector=alloydb this may be left empty to use the IAM principal from Application Default Credentials.")
	flags.StringVar(&cmd.cfg.DatabasePassword, "database-password", "", "Database password. Leave empty with --connector=alloydb to use IAM database authentication.")
	flags.StringVar(&cmd.cfg.DatabaseName, "database-name", "", "Database name. Required for --connector=alloydb and --connector=cloudsql.")

	flags.BoolVar(&cmd.cfg.CacheTableStats, "cache-table-stats", false, "Cache table statistics in memory instead of querying catalogs on every request.")
	flags.IntVar(&cmd.cfg.CacheResetIntervalSeconds, "cache-reset-interval-seconds", 0, "Seconds between automatic table stats cache refreshes. 0 disables the background refresh.")
	flags.BoolVar(&cmd.cfg.EnableSQLEndpoint, "enable-sql-endpoint", true, "Enable POST /sql for raw statement execution.")
	flags.BoolVar(&cmd.cfg.EnableCacheResetEndpoint, "enable-cache-reset-endpoint", true, "Enable GET /reset_table_stats_cache.")
	flags.IntVar(&cmd.cfg.InsertBatchSize, "insert-batch-size", 500, "Maximum number of rows built into a single multi-row INSERT statement.")

	flags.Var(&cmd.cfg.LogLevel, "log-level", "Specify the minimum level logged. Allowed: 'debug', 'info', 'warn', 'error'.")
	flags.Var(&cmd.cfg.LoggingFormat, "logging-format", "Specify logging format to use. Allowed: 'standard' or 'json'.")

	return serveCmd
}

func run(cmd *Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	logger, err := newLogger(cmd)
	if err != nil {
		return fmt.Errorf("unable to initialize logger: %w", err)
	}
	cmd.logger = logger

	trace.SetTracer(versionString)
	otelShutdown, err := telemetry.SetupOTel(ctx, versionString)
	if err != nil {
		errMsg := fmt.Errorf("error setting up OpenTelemetry: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			cmd.logger.Error(fmt.Errorf("error shutting down OpenTelemetry: %w", err).Error())
		}
	}()

	pool, err := connector.Open(ctx, connectorConfig(cmd.cfg), trace.Tracer(), versionString)
	if err != nil {
		errMsg := fmt.Errorf("pgrest failed to connect to the database: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}
	defer pool.Close()

	cache, err := newCache(ctx, pool, cmd.cfg)
	if err != nil {
		errMsg := fmt.Errorf("pgrest failed to initialize the table stats cache: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}
	if cached, ok := cache.(*schema.Cached); ok {
		defer cached.Stop()
	}

	exec := executor.New(pool)
	srv := httpapi.NewServer(httpapi.Config{
		EnableSQLEndpoint:        cmd.cfg.EnableSQLEndpoint,
		EnableCacheResetEndpoint: cmd.cfg.EnableCacheResetEndpoint,
		InsertBatchSize:          cmd.cfg.InsertBatchSize,
	}, cache, exec, cmd.logger, strings.EqualFold(cmd.cfg.LoggingFormat.String(), "json"))

	addr := net.JoinHostPort(cmd.cfg.Address, fmt.Sprintf("%d", cmd.cfg.Port))
	lc := net.ListenConfig{KeepAlive: 30 * time.Second}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		errMsg := fmt.Errorf("pgrest failed to mount listener: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}

	cmd.logger.Info("Server ready to serve", "address", addr)
	if err := http.Serve(listener, srv.Router()); err != nil {
		errMsg := fmt.Errorf("pgrest crashed with the following error: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}
	return nil
}

func newLogger(cmd *Command) (log.Logger, error) {
	switch strings.ToLower(cmd.cfg.LoggingFormat.String()) {
	case "json":
		return log.NewStructuredLogger(cmd.outStream, cmd.errStream, cmd.cfg.LogLevel.String())
	case "standard":
		return log.NewStdLogger(cmd.outStream, cmd.errStream, cmd.cfg.LogLevel.String())
	default:
		return nil, fmt.Errorf("logging format invalid")
	}
}

func connectorConfig(cfg serveConfig) connector.Config {
	return connector.Config{
		Kind:             connector.Kind(cfg.ConnectorKind.String()),
		DatabaseURL:      cfg.DatabaseURL,
		SSLMode:          cfg.SSLMode,
		QueryParams:      cfg.QueryParams,
		AlloyDBProject:   cfg.AlloyDBProject,
		AlloyDBRegion:    cfg.AlloyDBRegion,
		AlloyDBCluster:   cfg.AlloyDBCluster,
		AlloyDBInstance:  cfg.AlloyDBInstance,
		CloudSQLProject:  cfg.CloudSQLProject,
		CloudSQLRegion:   cfg.CloudSQLRegion,
		CloudSQLInstance: cfg.CloudSQLInstance,
		User:             cfg.DatabaseUser,
		Password:         cfg.DatabasePassword,
		Database:         cfg.DatabaseName,
	}
}

// newCache builds the Uncached or Cached stats-cache policy cfg selected,
// bootstrapping the latter before it can serve traffic.
func newCache(ctx context.Context, pool *pgxpool.Pool, cfg serveConfig) (schema.Cache, error) {
	if !cfg.CacheTableStats {
		return &schema.Uncached{Pool: pool}, nil
	}
	cached := schema.NewCached(pool, time.Duration(cfg.CacheResetIntervalSeconds)*time.Second)
	if err := cached.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return cached, nil
}
