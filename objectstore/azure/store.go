// Package azure provides an Azure Blob Storage backend for storegate.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/sagarc03/storegate"
)

// Store implements storegate.ObjectStore for Azure Blob Storage.
type Store struct {
	client *azblob.Client
	now    func() time.Time
}

// New creates a Store around an existing client. SAS grants require the
// client to hold a shared key credential.
func New(client *azblob.Client) *Store {
	return &Store{client: client, now: time.Now}
}

// NewFromConnectionString creates a Store from a storage account connection
// string. Retries are disabled; callers bound each call with a context.
func NewFromConnectionString(connStr string) (*Store, error) {
	client, err := azblob.NewClientFromConnectionString(connStr, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("azure blob client: %w: %w", storegate.ErrInvalidConfiguration, err)
	}
	return New(client), nil
}

// Client exposes the underlying azblob client.
func (s *Store) Client() *azblob.Client {
	return s.client
}

// ContainerExists fetches the container's properties. A missing container is
// reported as (false, nil).
func (s *Store) ContainerExists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.ServiceClient().NewContainerClient(name).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
			return false, nil
		}
		return false, classify("container properties", err)
	}
	return true, nil
}

// PresignURL mints a blob-scoped SAS URI. The start time is backdated a minute
// to tolerate clock skew.
func (s *Store) PresignURL(_ context.Context, ref storegate.ObjectRef, perm storegate.Permission, expiresAt time.Time) (string, error) {
	perms, err := sasPermissions(perm)
	if err != nil {
		return "", err
	}

	start := s.now().UTC().Add(-time.Minute)
	blobClient := s.client.ServiceClient().NewContainerClient(ref.Container).NewBlobClient(ref.Name)

	uri, err := blobClient.GetSASURL(perms, expiresAt.UTC(), &blob.GetSASURLOptions{StartTime: &start})
	if err != nil {
		if errors.Is(err, bloberror.MissingSharedKeyCredential) {
			return "", fmt.Errorf("sas url: %w: shared key credential required", storegate.ErrInvalidConfiguration)
		}
		return "", fmt.Errorf("sas url: %w", err)
	}

	return uri, nil
}

func sasPermissions(perm storegate.Permission) (sas.BlobPermissions, error) {
	switch perm {
	case storegate.PermissionRead:
		return sas.BlobPermissions{Read: true}, nil
	case storegate.PermissionWrite:
		return sas.BlobPermissions{Create: true, Write: true}, nil
	case storegate.PermissionReadWrite:
		return sas.BlobPermissions{Read: true, Create: true, Write: true}, nil
	case storegate.PermissionDelete:
		return sas.BlobPermissions{Delete: true}, nil
	default:
		return sas.BlobPermissions{}, fmt.Errorf("sas permissions: %w: unknown permission %q", storegate.ErrInvalidInput, perm)
	}
}

// Upload streams body as a block blob. The block list is committed only once
// the whole payload has been staged. With opts.Overwrite unset the commit is
// conditional on no blob existing.
func (s *Store) Upload(ctx context.Context, ref storegate.ObjectRef, body io.Reader, opts storegate.UploadOptions) (storegate.UploadResult, error) {
	counter := &countingReader{r: body}

	uploadOpts := &azblob.UploadStreamOptions{}
	if !opts.Overwrite {
		uploadOpts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		}
	}

	resp, err := s.client.UploadStream(ctx, ref.Container, ref.Name, counter, uploadOpts)
	if err != nil {
		switch {
		case bloberror.HasCode(err, bloberror.ContainerNotFound):
			return storegate.UploadResult{}, storegate.ErrContainerNotFound
		case bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
			return storegate.UploadResult{}, storegate.ErrObjectExists
		}
		return storegate.UploadResult{}, classify("upload stream", err)
	}

	result := storegate.UploadResult{Object: ref, BytesWritten: counter.n}
	if resp.ETag != nil {
		result.ETag = string(*resp.ETag)
	}

	return result, nil
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

// classify maps credential and account failures to
// storegate.ErrInvalidConfiguration and leaves the rest to the caller.
func classify(op string, err error) error {
	if bloberror.HasCode(err,
		bloberror.AuthenticationFailed,
		bloberror.AuthorizationFailure,
		bloberror.InvalidAuthenticationInfo,
		bloberror.AccountIsDisabled,
		bloberror.InvalidResourceName,
	) {
		return fmt.Errorf("%s: %w: %w", op, storegate.ErrInvalidConfiguration, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
