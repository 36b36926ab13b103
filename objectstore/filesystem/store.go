// Package filesystem provides a local directory backend for storegate.
// Top-level directories are containers. Writes are atomic using temp files,
// etags are SHA256-based, and grants are URIs signed for the gateway's own
// /objects routes.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/storegate"
)

// ObjectsPrefix is the route under which the gateway serves filesystem objects.
const ObjectsPrefix = "/objects"

// Store provides file system storage operations.
type Store struct {
	root   *os.Root
	signer *storegate.GrantSigner
}

// NewStore creates a new Store over root. The root provides sandboxed file
// operations preventing path traversal. signer may be nil, in which case
// PresignURL fails with storegate.ErrInvalidConfiguration.
func NewStore(root *os.Root, signer *storegate.GrantSigner) *Store {
	return &Store{root: root, signer: signer}
}

// ObjectPath returns the URL path at which ref is served.
func ObjectPath(ref storegate.ObjectRef) string {
	return ObjectsPrefix + "/" + ref.Container + "/" + ref.Name
}

// ContainerExists reports whether name is an existing top-level directory.
func (s *Store) ContainerExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if !storegate.IsValidContainerName(name) {
		return false, nil
	}

	info, err := s.root.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat container: %w", err)
	}

	return info.IsDir(), nil
}

// PresignURL returns a signed URI for ref. The object does not have to exist.
func (s *Store) PresignURL(ctx context.Context, ref storegate.ObjectRef, perm storegate.Permission, expiresAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.signer == nil {
		return "", fmt.Errorf("presign: %w: no signing key configured", storegate.ErrInvalidConfiguration)
	}

	if !storegate.IsValidObjectName(ref.Name) {
		return "", fmt.Errorf("presign: %w: invalid object name %q", storegate.ErrInvalidInput, ref.Name)
	}

	return s.signer.SignedURL(ObjectPath(ref), perm, expiresAt)
}

// Open opens ref for reading. Returns storegate.ErrNotFound if the object does not exist.
func (s *Store) Open(ctx context.Context, ref storegate.ObjectRef) (io.ReadSeekCloser, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	if !storegate.IsValidContainerName(ref.Container) || !storegate.IsValidObjectName(ref.Name) {
		return nil, time.Time{}, storegate.ErrNotFound
	}

	f, err := s.root.Open(path.Join(ref.Container, ref.Name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, storegate.ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, time.Time{}, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		_ = f.Close()
		return nil, time.Time{}, storegate.ErrNotFound
	}

	return f, info.ModTime(), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Upload atomically writes body to ref using a temp file and rename.
// It creates intermediate directories inside the container as needed but never
// creates the container itself. With opts.Overwrite unset the temp file is
// hard-linked into place, which fails if the object already exists.
func (s *Store) Upload(ctx context.Context, ref storegate.ObjectRef, body io.Reader, opts storegate.UploadOptions) (storegate.UploadResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return storegate.UploadResult{}, ctxErr
	}

	if !storegate.IsValidObjectName(ref.Name) {
		return storegate.UploadResult{}, fmt.Errorf("upload: %w: invalid object name %q", storegate.ErrInvalidInput, ref.Name)
	}

	exists, err := s.ContainerExists(ctx, ref.Container)
	if err != nil {
		return storegate.UploadResult{}, err
	}
	if !exists {
		return storegate.UploadResult{}, storegate.ErrContainerNotFound
	}

	dest := path.Join(ref.Container, ref.Name)

	if !opts.Overwrite {
		if _, statErr := s.root.Stat(dest); statErr == nil {
			return storegate.UploadResult{}, storegate.ErrObjectExists
		}
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return storegate.UploadResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if rmErr := s.root.Remove(tmpFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn("failed to remove tmp file", "err", rmErr)
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	fileSizeBytes, err := io.Copy(w, &ctxReader{ctx: ctx, r: body})
	if err != nil {
		return storegate.UploadResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err = t.Sync(); err != nil {
		return storegate.UploadResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	if destDir := path.Dir(dest); destDir != ref.Container {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return storegate.UploadResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if opts.Overwrite {
		if renameErr := s.root.Rename(tmpFile, dest); renameErr != nil {
			return storegate.UploadResult{}, fmt.Errorf("failed to rename file: %w", renameErr)
		}
	} else {
		if linkErr := s.root.Link(tmpFile, dest); linkErr != nil {
			if errors.Is(linkErr, os.ErrExist) {
				return storegate.UploadResult{}, storegate.ErrObjectExists
			}
			return storegate.UploadResult{}, fmt.Errorf("failed to link file: %w", linkErr)
		}
	}

	return storegate.UploadResult{
		Object:       ref,
		BytesWritten: fileSizeBytes,
		ETag:         hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// CreateContainer creates the top-level directory for name.
func (s *Store) CreateContainer(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !storegate.IsValidContainerName(name) {
		return fmt.Errorf("create container: %w: invalid container name %q", storegate.ErrInvalidInput, name)
	}

	if err := s.root.Mkdir(name, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create container: %w", err)
	}

	return nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
