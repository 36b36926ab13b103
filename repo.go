package storegate

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the operations the service consumes from a blob store.
// Implementations exist for Azure Blob Storage, S3 and the local filesystem.
//
// All methods accept a context for cancellation and timeout control.
type ObjectStore interface {
	// ContainerExists reports whether the named container exists.
	// It never creates the container.
	//
	// Returns:
	//   - bool: true if the container exists
	//   - error: transport or service failures; a missing container is (false, nil)
	ContainerExists(ctx context.Context, name string) (bool, error)

	// PresignURL mints a capability URI granting perm on ref until expiresAt.
	// The object itself does not have to exist yet.
	//
	// Returns:
	//   - string: the signed URI
	//   - error: ErrInvalidInput for a permission the backend cannot express,
	//     ErrInvalidConfiguration when the credentials cannot sign
	PresignURL(ctx context.Context, ref ObjectRef, perm Permission, expiresAt time.Time) (string, error)

	// Upload streams body into ref, replacing an existing object when
	// opts.Overwrite is set. The write is whole-payload: either the object is
	// fully written or the call fails.
	//
	// Returns:
	//   - UploadResult: bytes written and the backend's ETag
	//   - error: ErrObjectExists when overwriting is disabled and ref exists,
	//     ErrContainerNotFound when the container vanished, or transport errors
	Upload(ctx context.Context, ref ObjectRef, body io.Reader, opts UploadOptions) (UploadResult, error)
}

// ObjectReader is implemented by object stores whose objects are served by
// this gateway itself (the filesystem backend).
type ObjectReader interface {
	// Open returns the content of ref. The caller closes the reader.
	// Returns ErrNotFound if the object does not exist.
	Open(ctx context.Context, ref ObjectRef) (io.ReadSeekCloser, time.Time, error)
}

// EntityStore defines the operations the service consumes from a partitioned
// entity store.
type EntityStore interface {
	// Insert adds rec addressed by (PartitionKey, RowKey). It never replaces an
	// existing entity.
	//
	// Returns:
	//   - CustomerRecord: rec with Timestamp and ETag set by the store
	//   - error: ErrInsertConflict when the keys are taken, ErrInvalidConfiguration
	//     when the table does not resolve, or transport errors
	Insert(ctx context.Context, rec CustomerRecord) (CustomerRecord, error)

	// Get reads the entity addressed by (partitionKey, rowKey).
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, partitionKey, rowKey string) (CustomerRecord, error)
}

// SecretStore resolves access keys to secret keys for grant signing.
type SecretStore interface {
	// Lookup returns the secret for accessKey, or an error wrapping ErrUnauthorized.
	Lookup(accessKey string) (string, error)
}
