package keybackend

import (
	"fmt"

	"github.com/sagarc03/storegate"
)

// KeysConfig holds configuration for loading access keys.
type KeysConfig struct {
	Inline []KeyPair `mapstructure:"inline" yaml:"inline"` // Inline key pairs from config
	File   string    `mapstructure:"file" yaml:"file"`     // Path to a JSON key file
	Signer string    `mapstructure:"signer" yaml:"signer"` // Access key used to sign grants; overrides the file's signer
}

// NewSecretStore builds the key set for grant signing and verification from
// inline pairs and the key file. A key present in both must carry the same
// secret.
//
// The signing key is the configured Signer, else the key file's signer, else
// the lexically smallest access key. A named signer that is not in the set
// is a configuration error; an empty set is not, since it can still refuse
// every grant.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	keys, err := mergePairs(nil, cfg.Inline)
	if err != nil {
		return nil, fmt.Errorf("inline keys: %w", err)
	}

	signer := cfg.Signer

	if cfg.File != "" {
		kf, err := LoadKeyFile(cfg.File)
		if err != nil {
			return nil, err
		}
		if keys, err = mergePairs(keys, kf.Keys); err != nil {
			return nil, fmt.Errorf("key file %s: %w", cfg.File, err)
		}
		if signer == "" {
			signer = kf.Signer
		}
	}

	store := NewMapSecretStore(keys)
	store.signer = signer

	if signer != "" {
		if _, err := store.SigningPair(signer); err != nil {
			return nil, fmt.Errorf("signer: %w: %w", storegate.ErrInvalidConfiguration, err)
		}
	}

	return store, nil
}
