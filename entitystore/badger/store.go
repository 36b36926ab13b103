// Package badger implements storegate.EntityStore on an embedded BadgerDB.
// Records are stored as JSON under {table}\x00{partitionKey}\x00{rowKey}.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sagarc03/storegate"
)

const keySeparator = 0x00

// Config holds the BadgerDB settings.
type Config struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir      string `mapstructure:"dir" yaml:"dir"`
	InMemory bool   `mapstructure:"in_memory" yaml:"in_memory"`
}

// Store implements storegate.EntityStore for BadgerDB.
type Store struct {
	db    *badger.DB
	table string
	now   func() time.Time
}

// New creates a Store over an open database.
func New(db *badger.DB, table string) (*Store, error) {
	if table == "" {
		return nil, fmt.Errorf("badger store: %w: table is required", storegate.ErrInvalidConfiguration)
	}
	return &Store{db: db, table: table, now: time.Now}, nil
}

// Open opens the database described by cfg with badger's logger disabled.
func Open(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else if cfg.Dir == "" {
		return nil, fmt.Errorf("open badger: %w: dir is required", storegate.ErrInvalidConfiguration)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func (s *Store) key(partitionKey, rowKey string) []byte {
	k := make([]byte, 0, len(s.table)+len(partitionKey)+len(rowKey)+2)
	k = append(k, s.table...)
	k = append(k, keySeparator)
	k = append(k, partitionKey...)
	k = append(k, keySeparator)
	k = append(k, rowKey...)
	return k
}

// Insert writes rec inside an update transaction that first checks the key is
// unused. A concurrent writer on the same key makes the commit fail with
// badger.ErrConflict, which is reported as an insert conflict as well.
func (s *Store) Insert(ctx context.Context, rec storegate.CustomerRecord) (storegate.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("insert: %w", err)
	}

	ts := s.now().UTC()
	rec.Timestamp = &ts
	rec.ETag = uuid.NewString()

	value, err := json.Marshal(rec)
	if err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("insert: encode: %w", err)
	}

	key := s.key(rec.PartitionKey, rec.RowKey)

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return storegate.ErrInsertConflict
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
	if err != nil {
		if errors.Is(err, storegate.ErrInsertConflict) || errors.Is(err, badger.ErrConflict) {
			return storegate.CustomerRecord{}, fmt.Errorf("insert %s/%s: %w", rec.PartitionKey, rec.RowKey, storegate.ErrInsertConflict)
		}
		return storegate.CustomerRecord{}, fmt.Errorf("insert: %w", err)
	}

	return rec, nil
}

func (s *Store) Get(ctx context.Context, partitionKey, rowKey string) (storegate.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("get: %w", err)
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(partitionKey, rowKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storegate.ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, storegate.ErrNotFound) {
			return storegate.CustomerRecord{}, storegate.ErrNotFound
		}
		return storegate.CustomerRecord{}, fmt.Errorf("get: %w", err)
	}

	var rec storegate.CustomerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("get: decode: %w", err)
	}

	return rec, nil
}
