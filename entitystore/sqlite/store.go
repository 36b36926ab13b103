// Package sqlite implements storegate.EntityStore on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/storegate"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db        *sql.DB
	tableName string
	now       func() time.Time
}

// NewStore returns a Store over table. The table is expected to exist; see
// Migrate and ValidateSchema.
func NewStore(db *sql.DB, table string) (*Store, error) {
	if !storegate.IsValidTableName(table) {
		return nil, fmt.Errorf("new store: %w: invalid table name %q", storegate.ErrInvalidConfiguration, table)
	}

	return &Store{db: db, tableName: table, now: time.Now}, nil
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Insert(ctx context.Context, rec storegate.CustomerRecord) (storegate.CustomerRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (partition_key, row_key, first_name, last_name, email, phone_number, created_at, etag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, quoteIdentifier(s.tableName))

	ts := s.now().UTC()
	etag := uuid.NewString()

	_, err := s.db.ExecContext(ctx, query,
		rec.PartitionKey, rec.RowKey, rec.FirstName, rec.LastName, rec.Email, rec.PhoneNumber,
		ts.Format(time.RFC3339Nano), etag,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return storegate.CustomerRecord{}, fmt.Errorf("insert %s/%s: %w", rec.PartitionKey, rec.RowKey, storegate.ErrInsertConflict)
		}
		return storegate.CustomerRecord{}, fmt.Errorf("insert: %w", err)
	}

	rec.Timestamp = &ts
	rec.ETag = etag

	return rec, nil
}

func (s *Store) Get(ctx context.Context, partitionKey, rowKey string) (storegate.CustomerRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT partition_key, row_key, first_name, last_name, email, phone_number, created_at, etag
		FROM %s
		WHERE partition_key = ? AND row_key = ?`, quoteIdentifier(s.tableName))

	var rec storegate.CustomerRecord
	var createdAt string

	err := s.db.QueryRowContext(ctx, query, partitionKey, rowKey).Scan(
		&rec.PartitionKey, &rec.RowKey, &rec.FirstName, &rec.LastName, &rec.Email, &rec.PhoneNumber, &createdAt, &rec.ETag,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storegate.CustomerRecord{}, storegate.ErrNotFound
		}
		return storegate.CustomerRecord{}, fmt.Errorf("get: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("get: parse created_at: %w", err)
	}
	rec.Timestamp = &ts

	return rec, nil
}

// isConstraintViolation matches the primary and extended SQLITE_CONSTRAINT codes.
func isConstraintViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
