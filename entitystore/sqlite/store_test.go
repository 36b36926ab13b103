package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/entitystore/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// openMemoryDB opens a private in-memory database. A single connection keeps
// every statement on the same database.
func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open sqlite")
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// setupTestStore creates a store with a unique table name for test isolation
func setupTestStore(t *testing.T) (*sqlite.Store, *sql.DB, string) {
	t.Helper()
	ctx := context.Background()

	db := openMemoryDB(t)
	table := fmt.Sprintf("customers_%s", getRandomString(t))

	require.NoError(t, sqlite.Migrate(ctx, db, table), "failed to migrate")
	require.NoError(t, sqlite.ValidateSchema(ctx, db, table), "failed to validate")

	store, err := sqlite.NewStore(db, table)
	require.NoError(t, err)

	return store, db, table
}

func TestNewStore_InvalidTableName(t *testing.T) {
	db := openMemoryDB(t)

	for _, name := range []string{"", "Customers", "drop table;", "1abc"} {
		_, err := sqlite.NewStore(db, name)
		assert.ErrorIs(t, err, storegate.ErrInvalidConfiguration, "table %q", name)
	}
}

func TestStore_Insert(t *testing.T) {
	ctx := context.Background()
	store, _, _ := setupTestStore(t)

	rec := storegate.NewCustomerRecord("John", "Smith", "john@example.com", "555-0100")

	before := time.Now().UTC()
	saved, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, rec.PartitionKey, saved.PartitionKey)
	assert.Equal(t, rec.RowKey, saved.RowKey)
	assert.NotEmpty(t, saved.ETag)
	require.NotNil(t, saved.Timestamp)
	assert.False(t, saved.Timestamp.Before(before))

	got, err := store.Get(ctx, "SMITH_JOHN", rec.RowKey)
	require.NoError(t, err)
	assert.Equal(t, "John", got.FirstName)
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "john@example.com", got.Email)
	assert.Equal(t, "555-0100", got.PhoneNumber)
	assert.Equal(t, saved.ETag, got.ETag)
	require.NotNil(t, got.Timestamp)
	assert.True(t, saved.Timestamp.Equal(*got.Timestamp))
}

func TestStore_Insert_Conflict(t *testing.T) {
	ctx := context.Background()
	store, _, _ := setupTestStore(t)

	rec := storegate.NewCustomerRecord("Jane", "Doe", "jane@example.com", "")

	_, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	rec.Email = "other@example.com"
	_, err = store.Insert(ctx, rec)
	assert.ErrorIs(t, err, storegate.ErrInsertConflict)

	got, err := store.Get(ctx, rec.PartitionKey, rec.RowKey)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email, "insert must never replace")
}

func TestStore_Insert_SamePartition(t *testing.T) {
	ctx := context.Background()
	store, _, _ := setupTestStore(t)

	first := storegate.NewCustomerRecord("Jane", "Doe", "a@example.com", "")
	second := storegate.NewCustomerRecord("jane", "doe", "b@example.com", "")
	require.Equal(t, first.PartitionKey, second.PartitionKey)

	_, err := store.Insert(ctx, first)
	require.NoError(t, err)
	_, err = store.Insert(ctx, second)
	require.NoError(t, err)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _, _ := setupTestStore(t)

	_, err := store.Get(context.Background(), "NOBODY_", "missing")
	assert.ErrorIs(t, err, storegate.ErrNotFound)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	_, db, table := setupTestStore(t)

	require.NoError(t, sqlite.Migrate(ctx, db, table))
	assert.NoError(t, sqlite.ValidateSchema(ctx, db, table))
}

func TestDropTables(t *testing.T) {
	ctx := context.Background()
	_, db, table := setupTestStore(t)

	require.NoError(t, sqlite.DropTables(ctx, db, table))

	err := sqlite.ValidateSchema(ctx, db, table)
	assert.ErrorIs(t, err, storegate.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestValidateSchema_Mismatch(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	_, err := db.ExecContext(ctx, `CREATE TABLE "customers" (partition_key TEXT NOT NULL, row_key INTEGER, email TEXT)`)
	require.NoError(t, err)

	err = sqlite.ValidateSchema(ctx, db, "customers")
	require.ErrorIs(t, err, storegate.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Contains(t, err.Error(), "row_key: expected text, got integer")
	assert.Contains(t, err.Error(), "email: expected nullable=false, got nullable=true")
}

func TestValidateSchema_InvalidTableName(t *testing.T) {
	db := openMemoryDB(t)

	err := sqlite.ValidateSchema(context.Background(), db, "bad-name")
	assert.ErrorIs(t, err, storegate.ErrInvalidConfiguration)
}

func newMockStore(t *testing.T) (*sqlite.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := sqlite.NewStore(db, "customers")
	require.NoError(t, err)

	return store, mock
}

func TestStore_Insert_DriverError(t *testing.T) {
	store, mock := newMockStore(t)
	driverErr := errors.New("disk I/O error")

	mock.ExpectExec(`INSERT INTO "customers"`).WillReturnError(driverErr)

	_, err := store.Insert(context.Background(), storegate.NewCustomerRecord("A", "B", "", ""))
	assert.ErrorIs(t, err, driverErr)
	assert.NotErrorIs(t, err, storegate.ErrInsertConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_DriverError(t *testing.T) {
	store, mock := newMockStore(t)
	driverErr := errors.New("database is locked")

	mock.ExpectQuery(`SELECT partition_key`).WithArgs("B_A", "rk").WillReturnError(driverErr)

	_, err := store.Get(context.Background(), "B_A", "rk")
	assert.ErrorIs(t, err, driverErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_CorruptTimestamp(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"partition_key", "row_key", "first_name", "last_name", "email", "phone_number", "created_at", "etag"}).
		AddRow("B_A", "rk", "A", "B", "", "", "yesterday", "etag")
	mock.ExpectQuery(`SELECT partition_key`).WillReturnRows(rows)

	_, err := store.Get(context.Background(), "B_A", "rk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse created_at")
}
