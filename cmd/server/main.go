// Package main is the entry point for the dtx demo server: it bootstraps a
// primary Postgres data source (plus, when ENABLE_DYNAMIC_DATASOURCES=true,
// the data sources listed in its metadata store), a declarative transaction
// manager over them,
// and the ledger domain that exercises REQUIRED/NESTED/SUPPORTS propagation
// end to end over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dtx/api"
	"dtx/bootstrap"
	"dtx/datasource"
	"dtx/domain/ledger"
	"dtx/pkg/logger"
	"dtx/querylog"
	"dtx/tx"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting dtx server")

	// --- Data source registry and bootstrap ---
	registry := datasource.NewRegistry(datasource.DefaultConfig())
	defer registry.Close()

	dbPool, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
		Name:     "DB",
		Type:     "postgres",
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		Database: mustEnv("DB_NAME"),
		User:     mustEnv("DB_USER"),
		Password: mustEnv("DB_PASSWORD"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
		MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		QueryLog: querylog.Config{
			Enabled:            getEnv("QUERY_LOG_ENABLED", "true") == "true",
			SlowQueryThreshold: getEnvDuration("QUERY_LOG_SLOW_THRESHOLD", 200*time.Millisecond),
		},
	}, registry)
	if err != nil {
		log.Fatalw("failed to bootstrap data source", "error", err)
	}
	defer dbPool.Close()

	// --- Dynamic data sources from the metadata store ---
	// Mirrors the teacher's tenant registry resolving connection info from a
	// database table rather than static config; the data_sources table lives
	// in the same cluster as the primary pool.
	if getEnv("ENABLE_DYNAMIC_DATASOURCES", "false") == "true" {
		store := datasource.NewPostgresDescriptorStore(dbPool.Unwrap())
		dynamicPools, err := bootstrap.BootstrapFromStore(ctx, store, registry, bootstrap.PoolDefaults{
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		})
		if err != nil {
			log.Fatalw("failed to bootstrap dynamic data sources", "error", err)
		}
		for _, p := range dynamicPools {
			defer p.Close()
		}
		log.Infow("dynamic data sources loaded", "count", len(dynamicPools))
	}

	// --- Transaction manager ---
	txCfg := tx.DefaultConfig()
	if timeout := getEnvInt("TX_DEFAULT_TIMEOUT_MS", 0); timeout > 0 {
		txCfg.DefaultTimeout = timeout
	}
	if maxDepth := getEnvInt("TX_MAX_NESTED_DEPTH", 0); maxDepth > 0 {
		txCfg.MaxNestedDepth = maxDepth
	}
	if cleanup := getEnvDuration("TX_CLEANUP_INTERVAL", 0); cleanup > 0 {
		txCfg.CleanupInterval = cleanup
	}
	txCfg.EnableStats = getEnv("TX_ENABLE_STATS", "true") == "true"
	txCfg.EnableLogging = getEnv("TX_ENABLE_LOGGING", "true") == "true"

	manager := tx.NewManager(registry, txCfg)
	defer manager.StopCleanup()

	log.Infow("transaction manager initialized",
		"max_nested_depth", txCfg.MaxNestedDepth,
		"default_isolation", txCfg.DefaultIsolation,
		"stats_enabled", txCfg.EnableStats,
	)

	// --- Ledger demo domain ---
	repo := ledger.NewRepository(dbPool)
	ledgerService := ledger.NewService(manager, repo)

	// --- Router ---
	router := api.NewRouter(api.RouterConfig{
		Logger:   log,
		Registry: registry,
		Manager:  manager,
		Ledger:   ledgerService,
	})

	// --- HTTP server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
