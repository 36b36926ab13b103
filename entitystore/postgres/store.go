// Package postgres implements storegate.EntityStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/storegate"
)

const (
	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
)

type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewStore(pool *pgxpool.Pool, table string) (*Store, error) {
	if !storegate.IsValidTableName(table) {
		return nil, fmt.Errorf("new store: %w: invalid table name %q", storegate.ErrInvalidConfiguration, table)
	}

	return &Store{pool: pool, tableName: table}, nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Insert adds rec. created_at and etag are assigned by the database.
func (s *Store) Insert(ctx context.Context, rec storegate.CustomerRecord) (storegate.CustomerRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (partition_key, row_key, first_name, last_name, email, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, etag::text
	`, pgx.Identifier{s.tableName}.Sanitize())

	saved := rec
	saved.Timestamp = new(time.Time)

	err := s.pool.QueryRow(ctx, query,
		rec.PartitionKey, rec.RowKey, rec.FirstName, rec.LastName, rec.Email, rec.PhoneNumber,
	).Scan(saved.Timestamp, &saved.ETag)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case codeUniqueViolation:
				return storegate.CustomerRecord{}, fmt.Errorf("insert %s/%s: %w", rec.PartitionKey, rec.RowKey, storegate.ErrInsertConflict)
			case codeUndefinedTable:
				return storegate.CustomerRecord{}, fmt.Errorf("insert: %w: %w", storegate.ErrInvalidConfiguration, err)
			}
		}
		return storegate.CustomerRecord{}, fmt.Errorf("insert: %w", err)
	}

	*saved.Timestamp = saved.Timestamp.UTC()

	return saved, nil
}

func (s *Store) Get(ctx context.Context, partitionKey, rowKey string) (storegate.CustomerRecord, error) {
	query := fmt.Sprintf(`
		SELECT partition_key, row_key, first_name, last_name, email, phone_number, created_at, etag::text
		FROM %s
		WHERE partition_key = $1 AND row_key = $2
	`, pgx.Identifier{s.tableName}.Sanitize())

	var rec storegate.CustomerRecord
	var ts time.Time

	err := s.pool.QueryRow(ctx, query, partitionKey, rowKey).Scan(
		&rec.PartitionKey, &rec.RowKey, &rec.FirstName, &rec.LastName, &rec.Email, &rec.PhoneNumber, &ts, &rec.ETag,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storegate.CustomerRecord{}, storegate.ErrNotFound
		}
		return storegate.CustomerRecord{}, fmt.Errorf("get: %w", err)
	}

	ts = ts.UTC()
	rec.Timestamp = &ts

	return rec, nil
}
