package storegate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ServiceConfig carries the settings injected into a Service at construction.
type ServiceConfig struct {
	// Overwrite lets Upload replace an existing object of the same name.
	// When false, Upload fails with ErrObjectExists instead.
	Overwrite bool
	// OperationTimeout bounds each operation in addition to the caller's
	// context. Zero means no extra bound.
	OperationTimeout time.Duration
}

// DefaultServiceConfig returns the configuration matching the gateway's
// historical behavior: overwrites allowed, no extra timeout.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{Overwrite: true}
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the clock used to stamp grants.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service issues access grants, uploads objects and stores customer records.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	objects  ObjectStore
	entities EntityStore
	config   ServiceConfig
	now      func() time.Time
}

// NewService creates a Service. Either store may be nil when the caller only
// needs the other one; operations on a missing store fail with
// ErrInvalidConfiguration.
func NewService(objects ObjectStore, entities EntityStore, cfg ServiceConfig, opts ...Option) (*Service, error) {
	if objects == nil && entities == nil {
		return nil, fmt.Errorf("new service: %w: no store configured", ErrInvalidConfiguration)
	}

	if cfg.OperationTimeout < 0 {
		return nil, fmt.Errorf("new service: %w: operation timeout cannot be negative", ErrInvalidConfiguration)
	}

	s := &Service{
		objects:  objects,
		entities: entities,
		config:   cfg,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.OperationTimeout > 0 {
		return context.WithTimeout(ctx, s.config.OperationTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) requireContainer(ctx context.Context, name string) error {
	exists, err := s.objects.ContainerExists(ctx, name)
	if err != nil {
		return BackendError("container "+name, err)
	}
	if !exists {
		return fmt.Errorf("container %s: %w", name, ErrContainerNotFound)
	}
	return nil
}

// IssueGrant resolves (containerName, objectName) into a write-only access
// grant that expires GrantTTL after issuance. The container must exist; the
// object need not.
func (s *Service) IssueGrant(ctx context.Context, containerName, objectName string) (AccessGrant, error) {
	if err := ctx.Err(); err != nil {
		return AccessGrant{}, BackendError("issue grant", err)
	}

	if s.objects == nil {
		return AccessGrant{}, fmt.Errorf("issue grant: %w: no object store configured", ErrInvalidConfiguration)
	}

	if containerName == "" {
		return AccessGrant{}, fmt.Errorf("issue grant: %w: container name cannot be empty", ErrContainerNotFound)
	}

	if objectName == "" {
		return AccessGrant{}, fmt.Errorf("issue grant: %w: object name cannot be empty", ErrInvalidInput)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireContainer(ctx, containerName); err != nil {
		return AccessGrant{}, fmt.Errorf("issue grant: %w", err)
	}

	ref := ObjectRef{Container: containerName, Name: objectName}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(GrantTTL)

	uri, err := s.objects.PresignURL(ctx, ref, PermissionWrite, expiresAt)
	if err != nil {
		return AccessGrant{}, BackendError("issue grant "+ref.String(), err)
	}

	return AccessGrant{
		Object:     ref,
		URI:        uri,
		Permission: PermissionWrite,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Upload streams payload into objectName inside containerName. A zero-length
// payload is rejected before the backend is contacted.
func (s *Service) Upload(ctx context.Context, containerName, objectName string, payload io.Reader) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, BackendError("upload", err)
	}

	if s.objects == nil {
		return UploadResult{}, fmt.Errorf("upload: %w: no object store configured", ErrInvalidConfiguration)
	}

	if payload == nil {
		return UploadResult{}, fmt.Errorf("upload: %w", ErrEmptyPayload)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// The peek counts against the operation timeout but cannot interrupt a
	// Read that never returns; the caller's reader must bound itself.
	body := bufio.NewReader(payload)
	if _, err := body.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return UploadResult{}, fmt.Errorf("upload: %w", ErrEmptyPayload)
		}
		return UploadResult{}, fmt.Errorf("upload: read payload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return UploadResult{}, BackendError("upload: read payload", err)
	}

	if containerName == "" {
		return UploadResult{}, fmt.Errorf("upload: %w: container name cannot be empty", ErrContainerNotFound)
	}

	if objectName == "" {
		return UploadResult{}, fmt.Errorf("upload: %w: object name cannot be empty", ErrInvalidInput)
	}

	if err := s.requireContainer(ctx, containerName); err != nil {
		return UploadResult{}, fmt.Errorf("upload: %w", err)
	}

	ref := ObjectRef{Container: containerName, Name: objectName}
	counter := &countingReader{r: body}

	result, err := s.objects.Upload(ctx, ref, counter, UploadOptions{Overwrite: s.config.Overwrite})
	if err != nil {
		return UploadResult{}, BackendError("upload "+ref.String(), err)
	}

	result.Object = ref
	if result.BytesWritten == 0 {
		result.BytesWritten = counter.n
	}

	return result, nil
}

// SaveCustomer builds a customer record, inserts it once and returns its row
// key. Name fields are not validated here; empty names produce empty
// partition key segments.
func (s *Service) SaveCustomer(ctx context.Context, firstName, lastName, email, phoneNumber string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", BackendError("save customer", err)
	}

	if s.entities == nil {
		return "", fmt.Errorf("save customer: %w: no entity store configured", ErrInvalidConfiguration)
	}

	rec := NewCustomerRecord(firstName, lastName, email, phoneNumber)
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("save customer: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.entities.Insert(ctx, rec); err != nil {
		return "", BackendError("save customer "+rec.PartitionKey+"/"+rec.RowKey, err)
	}

	return rec.RowKey, nil
}

// GetCustomer reads back a customer record by its composite key.
func (s *Service) GetCustomer(ctx context.Context, partitionKey, rowKey string) (CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return CustomerRecord{}, BackendError("get customer", err)
	}

	if s.entities == nil {
		return CustomerRecord{}, fmt.Errorf("get customer: %w: no entity store configured", ErrInvalidConfiguration)
	}

	if partitionKey == "" || rowKey == "" {
		return CustomerRecord{}, fmt.Errorf("get customer: %w: partition key and row key are required", ErrInvalidInput)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec, err := s.entities.Get(ctx, partitionKey, rowKey)
	if err != nil {
		return CustomerRecord{}, BackendError("get customer "+partitionKey+"/"+rowKey, err)
	}

	return rec, nil
}
