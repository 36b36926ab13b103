// Package aztables implements storegate.EntityStore on Azure Table Storage.
package aztables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/sagarc03/storegate"
)

// Table service error codes.
const (
	codeEntityAlreadyExists = "EntityAlreadyExists"
	codeTableAlreadyExists  = "TableAlreadyExists"
	codeTableNotFound       = "TableNotFound"
	codeResourceNotFound    = "ResourceNotFound"
)

// Client defines the table client operations used by this store.
// *aztables.Client satisfies it.
type Client interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

// Config holds the Azure Table Storage settings.
type Config struct {
	ConnectionString string `mapstructure:"connection_string" yaml:"connection_string"`
}

// entity is the wire shape of a customer. Property names match the ones
// written by earlier clients of the same table.
type entity struct {
	PartitionKey string    `json:"PartitionKey"`
	RowKey       string    `json:"RowKey"`
	FirstName    string    `json:"FirstName"`
	LastName     string    `json:"LastName"`
	Email        string    `json:"Email"`
	PhoneNumber  string    `json:"PhoneNumber"`
	Timestamp    time.Time `json:"Timestamp,omitzero"`
}

// Store implements storegate.EntityStore for Azure Table Storage.
type Store struct {
	client Client
	now    func() time.Time
}

// New creates a Store around a table client.
func New(client Client) *Store {
	return &Store{client: client, now: time.Now}
}

// NewFromConnectionString creates a Store for table. Retries are disabled;
// callers bound each call with a context.
func NewFromConnectionString(connStr, table string) (*Store, error) {
	if table == "" {
		return nil, fmt.Errorf("azure table client: %w: table is required", storegate.ErrInvalidConfiguration)
	}

	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("azure table client: %w: %w", storegate.ErrInvalidConfiguration, err)
	}

	return New(svc.NewClient(table)), nil
}

// EnsureTable creates the table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, nil)
	if err != nil && !hasCode(err, codeTableAlreadyExists) {
		return classify("create table", err)
	}
	return nil
}

// Insert adds rec with AddEntity, which never replaces an existing entity.
func (s *Store) Insert(ctx context.Context, rec storegate.CustomerRecord) (storegate.CustomerRecord, error) {
	payload, err := json.Marshal(entity{
		PartitionKey: rec.PartitionKey,
		RowKey:       rec.RowKey,
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		Email:        rec.Email,
		PhoneNumber:  rec.PhoneNumber,
	})
	if err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("insert: marshal: %w", err)
	}

	resp, err := s.client.AddEntity(ctx, payload, nil)
	if err != nil {
		if hasCode(err, codeEntityAlreadyExists) {
			return storegate.CustomerRecord{}, fmt.Errorf("insert %s/%s: %w", rec.PartitionKey, rec.RowKey, storegate.ErrInsertConflict)
		}
		return storegate.CustomerRecord{}, classify("insert", err)
	}

	ts := s.now().UTC()
	var stored entity
	if len(resp.Value) > 0 && json.Unmarshal(resp.Value, &stored) == nil && !stored.Timestamp.IsZero() {
		ts = stored.Timestamp.UTC()
	}

	rec.Timestamp = &ts
	rec.ETag = string(resp.ETag)

	return rec, nil
}

func (s *Store) Get(ctx context.Context, partitionKey, rowKey string) (storegate.CustomerRecord, error) {
	resp, err := s.client.GetEntity(ctx, partitionKey, rowKey, nil)
	if err != nil {
		if hasCode(err, codeResourceNotFound) {
			return storegate.CustomerRecord{}, storegate.ErrNotFound
		}
		return storegate.CustomerRecord{}, classify("get", err)
	}

	var e entity
	if err := json.Unmarshal(resp.Value, &e); err != nil {
		return storegate.CustomerRecord{}, fmt.Errorf("get: unmarshal: %w", err)
	}

	rec := storegate.CustomerRecord{
		PartitionKey: e.PartitionKey,
		RowKey:       e.RowKey,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		Email:        e.Email,
		PhoneNumber:  e.PhoneNumber,
		ETag:         string(resp.ETag),
	}
	if !e.Timestamp.IsZero() {
		ts := e.Timestamp.UTC()
		rec.Timestamp = &ts
	}

	return rec, nil
}

func hasCode(err error, codes ...string) bool {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	for _, c := range codes {
		if respErr.ErrorCode == c {
			return true
		}
	}
	return false
}

// classify maps a missing table and credential failures to
// storegate.ErrInvalidConfiguration, and keys or values the table service
// refuses to storegate.ErrInvalidInput. Neither succeeds on retry.
func classify(op string, err error) error {
	if hasCode(err, "InvalidInput", "OutOfRangeInput", "PropertyValueTooLarge") {
		return fmt.Errorf("%s: %w: %w", op, storegate.ErrInvalidInput, err)
	}
	if hasCode(err, codeTableNotFound, "AuthenticationFailed", "AuthorizationFailure", "InvalidAuthenticationInfo", "AccountIsDisabled", "InvalidResourceName") {
		return fmt.Errorf("%s: %w: %w", op, storegate.ErrInvalidConfiguration, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
