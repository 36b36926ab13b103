// Package objectstore selects and opens the configured object store backend.
package objectstore

import (
	"context"
	"fmt"
	"os"

	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/keybackend"
	"github.com/sagarc03/storegate/objectstore/azure"
	"github.com/sagarc03/storegate/objectstore/filesystem"
	"github.com/sagarc03/storegate/objectstore/s3"
)

const (
	BackendAzure      = "azure"
	BackendS3         = "s3"
	BackendFilesystem = "filesystem"
)

// Config holds the configuration for connecting to an object store.
type Config struct {
	// Backend is one of "azure", "s3" or "filesystem".
	Backend    string           `mapstructure:"backend" yaml:"backend" validate:"required,oneof=azure s3 filesystem"`
	Azure      AzureConfig      `mapstructure:"azure" yaml:"azure"`
	S3         s3.Config        `mapstructure:"s3" yaml:"s3"`
	Filesystem FilesystemConfig `mapstructure:"filesystem" yaml:"filesystem"`
}

// AzureConfig holds the Azure Blob Storage settings.
type AzureConfig struct {
	ConnectionString string `mapstructure:"connection_string" yaml:"connection_string"`
}

// FilesystemConfig holds the local directory settings.
type FilesystemConfig struct {
	// Root is the directory whose subdirectories are containers.
	Root string `mapstructure:"root" yaml:"root"`
	// BaseURL is the public origin used in signed grant URIs.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Containers are created under Root when opening the store.
	Containers []string `mapstructure:"containers" yaml:"containers"`
	// Keys sign grant URIs.
	Keys keybackend.KeysConfig `mapstructure:"keys" yaml:"keys"`
}

// Open connects to the configured backend and returns an ObjectStore.
// The returned cleanup function should be called to release resources.
func Open(ctx context.Context, cfg Config) (storegate.ObjectStore, func(), error) {
	switch cfg.Backend {
	case BackendAzure:
		return openAzure(cfg.Azure)
	case BackendS3:
		return openS3(ctx, cfg.S3)
	case BackendFilesystem:
		return openFilesystem(ctx, cfg.Filesystem)
	default:
		return nil, nil, fmt.Errorf("unsupported object store backend %q: %w", cfg.Backend, storegate.ErrInvalidConfiguration)
	}
}

func openAzure(cfg AzureConfig) (storegate.ObjectStore, func(), error) {
	if cfg.ConnectionString == "" {
		return nil, nil, fmt.Errorf("open azure: %w: connection string is required", storegate.ErrInvalidConfiguration)
	}

	store, err := azure.NewFromConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("open azure: %w", err)
	}

	return store, func() {}, nil
}

func openS3(ctx context.Context, cfg s3.Config) (storegate.ObjectStore, func(), error) {
	store, err := s3.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open s3: %w", err)
	}

	return store, func() {}, nil
}

func openFilesystem(ctx context.Context, cfg FilesystemConfig) (storegate.ObjectStore, func(), error) {
	if cfg.Root == "" {
		return nil, nil, fmt.Errorf("open filesystem: %w: root is required", storegate.ErrInvalidConfiguration)
	}

	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, nil, fmt.Errorf("open filesystem: %w", err)
	}

	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("open filesystem: %w: %w", storegate.ErrInvalidConfiguration, err)
	}

	signer, err := newSigner(cfg)
	if err != nil {
		_ = root.Close()
		return nil, nil, fmt.Errorf("open filesystem: %w", err)
	}

	store := filesystem.NewStore(root, signer)

	for _, c := range cfg.Containers {
		if err := store.CreateContainer(ctx, c); err != nil {
			_ = root.Close()
			return nil, nil, fmt.Errorf("open filesystem: %w", err)
		}
	}

	cleanup := func() {
		_ = root.Close()
	}

	return store, cleanup, nil
}

// newSigner returns nil when no base URL is configured, leaving the store
// unable to issue grants.
func newSigner(cfg FilesystemConfig) (*storegate.GrantSigner, error) {
	if cfg.BaseURL == "" {
		return nil, nil
	}

	keys, err := keybackend.NewSecretStore(cfg.Keys)
	if err != nil {
		return nil, err
	}

	pair, err := keys.Signer()
	if err != nil {
		return nil, err
	}

	return storegate.NewGrantSigner(cfg.BaseURL, pair.AccessKey, pair.SecretKey)
}
