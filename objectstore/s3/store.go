// Package s3 provides an Amazon S3 backend for storegate. Containers map to
// buckets.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/internal/awsconfig"
)

// Client defines the S3 client interface used by this store.
// This allows for easy mocking in tests.
type Client interface {
	manager.UploadAPIClient
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Presigner defines the presign operations used by this store.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignDeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds the S3 connection settings.
type Config struct {
	awsconfig.Config `mapstructure:",squash" yaml:",inline"`
	UsePathStyle     bool `mapstructure:"use_path_style" yaml:"use_path_style"`
}

// Store implements storegate.ObjectStore for S3.
type Store struct {
	client    Client
	presigner Presigner
	uploader  *manager.Uploader
	now       func() time.Time
}

// New creates a Store from explicit clients.
func New(client Client, presigner Presigner) *Store {
	return &Store{
		client:    client,
		presigner: presigner,
		uploader:  manager.NewUploader(client),
		now:       time.Now,
	}
}

// NewFromConfig builds the SDK clients from cfg.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.Load(ctx, cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("s3 store: %w: %w", storegate.ErrInvalidConfiguration, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = cfg.EndpointOrNil()
		o.UsePathStyle = cfg.UsePathStyle
	})

	return New(client, s3.NewPresignClient(client)), nil
}

// ContainerExists issues HeadBucket. A missing bucket is reported as (false, nil).
func (s *Store) ContainerExists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(name)})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classify("head bucket", err)
	}
	return true, nil
}

// PresignURL mints a SigV4 presigned URL for ref.
func (s *Store) PresignURL(ctx context.Context, ref storegate.ObjectRef, perm storegate.Permission, expiresAt time.Time) (string, error) {
	expires := expiresAt.Sub(s.now())
	if expires <= 0 {
		return "", fmt.Errorf("presign: %w: expiry is in the past", storegate.ErrInvalidInput)
	}
	withExpiry := s3.WithPresignExpires(expires)

	var (
		req *v4.PresignedHTTPRequest
		err error
	)

	switch perm {
	case storegate.PermissionRead:
		req, err = s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(ref.Container),
			Key:    aws.String(ref.Name),
		}, withExpiry)
	case storegate.PermissionWrite:
		req, err = s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(ref.Container),
			Key:    aws.String(ref.Name),
		}, withExpiry)
	case storegate.PermissionDelete:
		req, err = s.presigner.PresignDeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(ref.Container),
			Key:    aws.String(ref.Name),
		}, withExpiry)
	default:
		return "", fmt.Errorf("presign: %w: permission %q is not supported by s3", storegate.ErrInvalidInput, perm)
	}

	if err != nil {
		return "", classify("presign", err)
	}

	return req.URL, nil
}

// Upload streams body through the upload manager, which either issues a
// single PutObject or completes a multipart upload once every part is sent.
// The content type is sniffed from the first 512 bytes.
func (s *Store) Upload(ctx context.Context, ref storegate.ObjectRef, body io.Reader, opts storegate.UploadOptions) (storegate.UploadResult, error) {
	if !opts.Overwrite {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(ref.Container),
			Key:    aws.String(ref.Name),
		})
		switch {
		case err == nil:
			return storegate.UploadResult{}, storegate.ErrObjectExists
		case isNoSuchBucket(err):
			return storegate.UploadResult{}, storegate.ErrContainerNotFound
		case !isNotFound(err):
			return storegate.UploadResult{}, classify("head object", err)
		}
	}

	var sniff [512]byte
	n, readErr := io.ReadFull(body, sniff[:])
	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		return storegate.UploadResult{}, fmt.Errorf("read sniff: %w", readErr)
	}

	counter := &countingReader{r: io.MultiReader(bytes.NewReader(sniff[:n]), body)}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(ref.Container),
		Key:         aws.String(ref.Name),
		Body:        counter,
		ContentType: aws.String(http.DetectContentType(sniff[:n])),
	}
	if !opts.Overwrite {
		input.IfNoneMatch = aws.String("*")
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		switch {
		case isNoSuchBucket(err):
			return storegate.UploadResult{}, storegate.ErrContainerNotFound
		case hasCode(err, "PreconditionFailed"):
			return storegate.UploadResult{}, storegate.ErrObjectExists
		}
		return storegate.UploadResult{}, classify("upload", err)
	}

	return storegate.UploadResult{
		Object:       ref,
		BytesWritten: counter.n,
		ETag:         aws.ToString(out.ETag),
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

func hasCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}

func isNoSuchBucket(err error) bool {
	var nsb *types.NoSuchBucket
	return errors.As(err, &nsb) || hasCode(err, "NoSuchBucket")
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk) || isNoSuchBucket(err) || hasCode(err, "NotFound", "NoSuchKey")
}

// classify maps credential failures to storegate.ErrInvalidConfiguration.
func classify(op string, err error) error {
	if hasCode(err, "Forbidden", "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "InvalidBucketName") {
		return fmt.Errorf("%s: %w: %w", op, storegate.ErrInvalidConfiguration, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
