package badger_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/sagarc03/storegate"
	badgerstore "github.com/sagarc03/storegate/entitystore/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badgerstore.Open(badgerstore.Config{InMemory: true})
	require.NoError(t, err, "failed to open badger")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	store, err := badgerstore.New(setupTestDB(t), "customers")
	require.NoError(t, err)
	return store
}

func TestNew_RequiresTable(t *testing.T) {
	_, err := badgerstore.New(setupTestDB(t), "")
	assert.ErrorIs(t, err, storegate.ErrInvalidConfiguration)
}

func TestOpen_RequiresDir(t *testing.T) {
	_, err := badgerstore.Open(badgerstore.Config{})
	assert.ErrorIs(t, err, storegate.ErrInvalidConfiguration)
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := badgerstore.Open(badgerstore.Config{Dir: dir})
	require.NoError(t, err)

	store, err := badgerstore.New(db, "customers")
	require.NoError(t, err)

	saved, err := store.Insert(ctx, storegate.NewCustomerRecord("John", "Smith", "", ""))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = badgerstore.Open(badgerstore.Config{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err = badgerstore.New(db, "customers")
	require.NoError(t, err)

	got, err := store.Get(ctx, saved.PartitionKey, saved.RowKey)
	require.NoError(t, err)
	assert.Equal(t, saved.ETag, got.ETag)
}

func TestStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	rec := storegate.NewCustomerRecord("John", "Smith", "john@example.com", "555-0100")

	saved, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ETag)
	require.NotNil(t, saved.Timestamp)

	got, err := store.Get(ctx, "SMITH_JOHN", rec.RowKey)
	require.NoError(t, err)
	assert.Equal(t, saved.FirstName, got.FirstName)
	assert.Equal(t, saved.Email, got.Email)
	assert.Equal(t, saved.ETag, got.ETag)
	require.NotNil(t, got.Timestamp)
	assert.True(t, saved.Timestamp.Equal(*got.Timestamp))
}

func TestStore_Insert_Conflict(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	rec := storegate.NewCustomerRecord("Jane", "Doe", "jane@example.com", "")

	first, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	rec.Email = "changed@example.com"
	_, err = store.Insert(ctx, rec)
	assert.ErrorIs(t, err, storegate.ErrInsertConflict)

	got, err := store.Get(ctx, rec.PartitionKey, rec.RowKey)
	require.NoError(t, err)
	assert.Equal(t, first.ETag, got.ETag)
	assert.Equal(t, "jane@example.com", got.Email)
}

func TestStore_Insert_ConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	rec := storegate.NewCustomerRecord("Jane", "Doe", "", "")

	var wg sync.WaitGroup
	var succeeded, conflicted atomic.Int32

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Insert(ctx, rec)
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, storegate.ErrInsertConflict):
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(7), conflicted.Load())
}

func TestStore_TablesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	a, err := badgerstore.New(db, "customers")
	require.NoError(t, err)
	b, err := badgerstore.New(db, "archive")
	require.NoError(t, err)

	rec := storegate.NewCustomerRecord("John", "Smith", "", "")
	_, err = a.Insert(ctx, rec)
	require.NoError(t, err)

	_, err = b.Get(ctx, rec.PartitionKey, rec.RowKey)
	assert.ErrorIs(t, err, storegate.ErrNotFound)

	_, err = b.Insert(ctx, rec)
	assert.NoError(t, err)
}

func TestStore_Get_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(context.Background(), "NOBODY_", "missing")
	assert.ErrorIs(t, err, storegate.ErrNotFound)
}

func TestStore_CanceledContext(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Insert(ctx, storegate.NewCustomerRecord("A", "B", "", ""))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Get(ctx, "B_A", "x")
	assert.ErrorIs(t, err, context.Canceled)
}
