// Package app wires stores and environment for the command binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"affect-lab/internal/storage"
	chstore "affect-lab/internal/storage/clickhouse"
	"affect-lab/internal/storage/memory"
	"affect-lab/internal/storage/migrations"
	pgstore "affect-lab/internal/storage/postgres"
)

// Stores holds all storage implementations.
type Stores struct {
	Readings storage.ReadingStore
	Scalars  storage.DailyScalarStore
	Labels   storage.LabelStore
	Progress storage.IngestProgressStore
	Dataset  storage.DatasetStore // nil when no ClickHouse DSN is configured
}

// StoreOptions selects the storage backends.
type StoreOptions struct {
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool
	Migrate       bool
}

// OpenStores creates stores and returns a cleanup function.
// With UseMemory every store is in-memory. Otherwise PostgreSQL is required
// and ClickHouse is optional.
func OpenStores(ctx context.Context, opts StoreOptions) (*Stores, func(), error) {
	if opts.UseMemory {
		return &Stores{
			Readings: memory.NewReadingStore(),
			Scalars:  memory.NewDailyScalarStore(),
			Labels:   memory.NewLabelStore(),
			Progress: memory.NewIngestProgressStore(),
			Dataset:  memory.NewDatasetStore(),
		}, func() {}, nil
	}

	if opts.PostgresDSN == "" {
		return nil, nil, fmt.Errorf("postgres DSN is required without in-memory storage")
	}

	pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if opts.Migrate {
		if _, err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	stores := &Stores{
		Readings: pgstore.NewReadingStore(pool),
		Scalars:  pgstore.NewDailyScalarStore(pool),
		Labels:   pgstore.NewLabelStore(pool),
		Progress: pgstore.NewIngestProgressStore(pool),
	}

	if opts.ClickhouseDSN == "" {
		return stores, pool.Close, nil
	}

	var chConn *chstore.Conn
	if opts.Migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, opts.ClickhouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, opts.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	stores.Dataset = chstore.NewDatasetStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// LoadEnvFile loads KEY=VALUE pairs from .env without overriding variables
// already set.
func LoadEnvFile() {
	loadEnvFile(".env")
}

func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// EnvOr returns the environment variable key, or fallback when unset.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
