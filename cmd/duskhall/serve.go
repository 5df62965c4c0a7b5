// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/duskhall/duskhall/internal/container"
	"github.com/duskhall/duskhall/internal/container/postgres"
	"github.com/duskhall/duskhall/internal/logging"
	"github.com/duskhall/duskhall/internal/observability"
	"github.com/duskhall/duskhall/internal/store"
	"github.com/duskhall/duskhall/internal/xdg"
)

// Default values for serve command flags.
const (
	defaultMetricsAddr     = "127.0.0.1:9100"
	defaultLogFormat       = "json"
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 10 * time.Second
)

// serveConfig holds configuration for the serve command. Values come from
// the YAML config file when --config is set; flags override the file.
type serveConfig struct {
	DatabaseURL string
	MetricsAddr string
	LogFormat   string
	LogLevel    string
	AutoMigrate bool
}

// Validate checks that the configuration is usable.
func (cfg *serveConfig) Validate() error {
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (flag, config file, or DATABASE_URL)")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", cfg.LogFormat)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the container coordination service",
		Long: `Start the container coordination service: connects to PostgreSQL,
wires the coordinator, and serves metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection string")
	cmd.Flags().String("metrics.addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log.format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log.level", defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().Bool("auto-migrate", false, "run pending database migrations on startup")

	return cmd
}

// loadServeConfig layers the YAML config file under command-line flags.
func loadServeConfig(cmd *cobra.Command) (*serveConfig, error) {
	k := koanf.New(".")

	path := configFile
	if path == "" {
		path = xdg.DefaultConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}
	if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "load flags").Wrap(err)
	}

	cfg := &serveConfig{
		DatabaseURL: k.String("database.url"),
		MetricsAddr: k.String("metrics.addr"),
		LogFormat:   k.String("log.format"),
		LogLevel:    k.String("log.level"),
		AutoMigrate: k.Bool("auto-migrate"),
	}

	// DATABASE_URL keeps compose and CI setups simple.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// service bundles the long-lived pieces of a running serve process. The
// coordinator is the surface that transports (telnet, gRPC) attach to.
type service struct {
	pool        *pgxpool.Pool
	coordinator *container.Coordinator
}

func newService(pool *pgxpool.Pool) *service {
	return &service{
		pool: pool,
		coordinator: container.NewCoordinator(container.CoordinatorConfig{
			Containers: postgres.NewContainerRepository(pool),
			Players:    postgres.NewPlayerRepository(pool),
			Emitter:    store.NewEventLog(pool),
		}),
	}
}

// ready reports whether the service can reach its database.
func (s *service) ready(ctx context.Context) bool {
	return s.pool.Ping(ctx) == nil
}

func runServe(ctx context.Context, cfg *serveConfig) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.SetDefault("duskhall", version, cfg.LogFormat, level)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		migrator, err := store.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			_ = migrator.Close()
			return err
		}
		if err := migrator.Close(); err != nil {
			return err
		}
		slog.Info("migrations applied")
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := newService(pool)

	var obsServer *observability.Server
	var obsErrCh <-chan error
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return svc.ready(pingCtx)
		})
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return err
		}
	}

	slog.Info("duskhall serving", "metrics_addr", cfg.MetricsAddr)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case serveErr := <-obsErrCh:
		if serveErr != nil {
			slog.Error("observability server failed", "error", serveErr)
		}
	}

	if obsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}
