// Package bootstrap wires a configured data source into a datasource
// registry at application startup: validate, merge pool defaults, connect,
// install. It plays the "plugin bootstrap" role of §6.4/§9 — deliberately
// outside the transaction manager's core, but still a real package rather
// than a contract-only stub.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"dtx/datasource"
	"dtx/pkg/logger"
	"dtx/querylog"
	"dtx/storage/postgres"
)

// Config is the user-facing configuration for one data source bootstrap.
// It follows the same shape as the host metadata registry's own
// configuration surface in §6.4: a required engine type, connection
// coordinates, and a registry name.
type Config struct {
	// Name is the key this data source is installed under (default "DB").
	Name string

	// Type identifies the driver. Only "postgres" is implemented.
	Type string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// ConnURL, if set, is used verbatim instead of Host/Port/Database/User/Password.
	ConnURL string

	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// QueryLog configures the per-statement/transaction event adapter handed
	// to every Session this data source opens. Zero value means disabled.
	QueryLog querylog.Config
}

const defaultName = "DB"

// Validate rejects configurations missing a type or, for non-embedded
// engines, missing both a host and a connection URL, or missing a database
// name. Mirrors spec.md §9's plugin bootstrap contract.
func (c *Config) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("config: type is required")
	}
	if c.ConnURL == "" {
		if c.Host == "" {
			return fmt.Errorf("config: host or conn_url is required")
		}
		if c.Database == "" {
			return fmt.Errorf("config: database is required")
		}
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Name == "" {
		out.Name = defaultName
	}
	if out.MaxConns == 0 {
		out.MaxConns = 25
	}
	if out.MinConns == 0 {
		out.MinConns = 5
	}
	if out.MaxConnLifetime == 0 {
		out.MaxConnLifetime = time.Hour
	}
	if out.MaxConnIdleTime == 0 {
		out.MaxConnIdleTime = 30 * time.Minute
	}
	if out.HealthCheckPeriod == 0 {
		out.HealthCheckPeriod = time.Minute
	}
	return out
}

func (c *Config) dsn() string {
	if c.ConnURL != "" {
		return c.ConnURL
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode)
}

// PoolDefaults carries the pool tuning applied uniformly to every data
// source loaded from a DescriptorStore, since an individual descriptor row
// only carries connection coordinates, not per-pool sizing.
type PoolDefaults struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	QueryLog          querylog.Config
}

// BootstrapFromStore loads every active descriptor from store and installs
// each as a data source in reg, mirroring tenant.Manager.createPool's
// dynamic lookup: the registry row, not a static Config, decides what gets
// connected. Descriptors are tried in order; the first failure aborts the
// remaining ones and closes whatever was already opened.
func BootstrapFromStore(ctx context.Context, store datasource.DescriptorStore, reg *datasource.Registry, defaults PoolDefaults) ([]*postgres.Pool, error) {
	descriptors, err := store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap from store: %w", err)
	}

	pools := make([]*postgres.Pool, 0, len(descriptors))
	for _, d := range descriptors {
		pool, err := Bootstrap(ctx, Config{
			Name:              d.Name,
			Type:              d.Driver,
			ConnURL:           d.DSN(),
			MaxConns:          defaults.MaxConns,
			MinConns:          defaults.MinConns,
			MaxConnLifetime:   defaults.MaxConnLifetime,
			MaxConnIdleTime:   defaults.MaxConnIdleTime,
			HealthCheckPeriod: defaults.HealthCheckPeriod,
			QueryLog:          defaults.QueryLog,
		}, reg)
		if err != nil {
			for _, p := range pools {
				p.Close()
			}
			return nil, fmt.Errorf("bootstrap from store: data source %q: %w", d.Name, err)
		}
		pools = append(pools, pool)
	}

	logger.Info(ctx, "bootstrapped data sources from store", "count", len(pools))
	return pools, nil
}

// Bootstrap validates cfg, connects a pool, builds a postgres.DataSource,
// and installs it into reg under cfg.Name. The returned *postgres.Pool is
// handed back so the caller can register its Close against application
// shutdown.
func Bootstrap(ctx context.Context, cfg Config, reg *datasource.Registry) (*postgres.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if cfg.Type != "postgres" {
		return nil, fmt.Errorf("bootstrap: unsupported type %q", cfg.Type)
	}
	cfg = cfg.withDefaults()

	poolCfg := postgres.PoolConfig{
		DSN:               cfg.dsn(),
		MaxConns:          cfg.MaxConns,
		MinConns:          cfg.MinConns,
		MaxConnLifetime:   cfg.MaxConnLifetime,
		MaxConnIdleTime:   cfg.MaxConnIdleTime,
		HealthCheckPeriod: cfg.HealthCheckPeriod,
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	queryLog := querylog.New(logger.Default().WithComponent("query-log").With("data_source", cfg.Name), cfg.QueryLog)
	ds := postgres.NewDataSource(pool, queryLog)
	if err := reg.Install(cfg.Name, ds); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: install %q: %w", cfg.Name, err)
	}

	logger.Info(ctx, "bootstrapped data source",
		"name", cfg.Name, "type", cfg.Type, "max_conns", cfg.MaxConns)

	return pool, nil
}
