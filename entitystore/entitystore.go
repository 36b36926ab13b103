// Package entitystore selects and opens the configured entity store backend.
package entitystore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/entitystore/aztables"
	"github.com/sagarc03/storegate/entitystore/badger"
	"github.com/sagarc03/storegate/entitystore/dynamodb"
	"github.com/sagarc03/storegate/entitystore/postgres"
	"github.com/sagarc03/storegate/entitystore/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	BackendAzTables = "aztables"
	BackendDynamoDB = "dynamodb"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds the configuration for connecting to an entity store.
type Config struct {
	// Backend is one of "aztables", "dynamodb", "badger", "sqlite" or "postgres".
	Backend string `mapstructure:"backend" yaml:"backend" validate:"required,oneof=aztables dynamodb badger sqlite postgres"`
	// Table names the customer table in every backend.
	Table string `mapstructure:"table" yaml:"table" validate:"required"`
	// AutoMigrate creates the table at open for backends that support Migrate.
	AutoMigrate bool `mapstructure:"auto_migrate" yaml:"auto_migrate"`

	AzTables aztables.Config `mapstructure:"aztables" yaml:"aztables"`
	DynamoDB dynamodb.Config `mapstructure:"dynamodb" yaml:"dynamodb"`
	Badger   badger.Config   `mapstructure:"badger" yaml:"badger"`
	SQLite   SQLConfig       `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres SQLConfig       `mapstructure:"postgres" yaml:"postgres"`
}

// SQLConfig holds a SQL data source name.
type SQLConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// Open connects to the configured backend and returns an EntityStore. SQL
// backends are migrated when AutoMigrate is set and always schema-validated.
// The returned cleanup function should be called to release resources.
func Open(ctx context.Context, cfg Config) (storegate.EntityStore, func(), error) {
	switch cfg.Backend {
	case BackendAzTables:
		return openAzTables(ctx, cfg)
	case BackendDynamoDB:
		return openDynamoDB(ctx, cfg)
	case BackendBadger:
		return openBadger(cfg)
	case BackendSQLite:
		return openSQLite(ctx, cfg)
	case BackendPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported entity store backend %q: %w", cfg.Backend, storegate.ErrInvalidConfiguration)
	}
}

// Migrate creates the customer table for backends with a schema or a table
// lifecycle (sqlite, postgres, aztables).
func Migrate(ctx context.Context, cfg Config) error {
	switch cfg.Backend {
	case BackendAzTables:
		store, err := aztables.NewFromConnectionString(cfg.AzTables.ConnectionString, cfg.Table)
		if err != nil {
			return fmt.Errorf("migrate aztables: %w", err)
		}
		return store.EnsureTable(ctx)
	case BackendSQLite:
		db, err := openSQLiteDB(ctx, cfg.SQLite.DSN)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return sqlite.Migrate(ctx, db, cfg.Table)
	case BackendPostgres:
		pool, err := openPostgresPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		return postgres.Migrate(ctx, pool, cfg.Table)
	case BackendDynamoDB, BackendBadger:
		return fmt.Errorf("migrate: %w: backend %s has no table to create", storegate.ErrInvalidInput, cfg.Backend)
	default:
		return fmt.Errorf("unsupported entity store backend %q: %w", cfg.Backend, storegate.ErrInvalidConfiguration)
	}
}

func openAzTables(ctx context.Context, cfg Config) (storegate.EntityStore, func(), error) {
	if cfg.AzTables.ConnectionString == "" {
		return nil, nil, fmt.Errorf("open aztables: %w: connection string is required", storegate.ErrInvalidConfiguration)
	}

	store, err := aztables.NewFromConnectionString(cfg.AzTables.ConnectionString, cfg.Table)
	if err != nil {
		return nil, nil, fmt.Errorf("open aztables: %w", err)
	}

	if cfg.AutoMigrate {
		if err := store.EnsureTable(ctx); err != nil {
			return nil, nil, fmt.Errorf("open aztables: %w", err)
		}
	}

	return store, func() {}, nil
}

func openDynamoDB(ctx context.Context, cfg Config) (storegate.EntityStore, func(), error) {
	store, err := dynamodb.NewFromConfig(ctx, cfg.DynamoDB, cfg.Table)
	if err != nil {
		return nil, nil, fmt.Errorf("open dynamodb: %w", err)
	}

	return store, func() {}, nil
}

func openBadger(cfg Config) (storegate.EntityStore, func(), error) {
	db, err := badger.Open(cfg.Badger)
	if err != nil {
		return nil, nil, err
	}

	store, err := badger.New(db, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return store, func() { _ = db.Close() }, nil
}

func openSQLiteDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open sqlite: %w: dsn is required", storegate.ErrInvalidConfiguration)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w: %w", storegate.ErrInvalidConfiguration, err)
	}

	// Every connection to an in-memory database gets its own database.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

func openSQLite(ctx context.Context, cfg Config) (storegate.EntityStore, func(), error) {
	db, err := openSQLiteDB(ctx, cfg.SQLite.DSN)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		if err = sqlite.Migrate(ctx, db, cfg.Table); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}

	if err = sqlite.ValidateSchema(ctx, db, cfg.Table); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	store, err := sqlite.NewStore(db, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create sqlite store: %w", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return store, cleanup, nil
}

func openPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("connect postgres: %w: dsn is required", storegate.ErrInvalidConfiguration)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w: %w", storegate.ErrInvalidConfiguration, err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

func openPostgres(ctx context.Context, cfg Config) (storegate.EntityStore, func(), error) {
	pool, err := openPostgresPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		if err = postgres.Migrate(ctx, pool, cfg.Table); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	if err = postgres.ValidateSchema(ctx, pool, cfg.Table); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	store, err := postgres.NewStore(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create postgres store: %w", err)
	}

	return store, pool.Close, nil
}
