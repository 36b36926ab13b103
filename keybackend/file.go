package keybackend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sagarc03/storegate"
)

// KeyPair represents an access key and secret key pair.
type KeyPair struct {
	AccessKey string `json:"access_key" mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key" yaml:"secret_key"`
}

func (p KeyPair) complete() bool {
	return p.AccessKey != "" && p.SecretKey != ""
}

// KeyFile is the on-disk form of a key set. Signer optionally names the
// access key that signs grants:
//
//	{
//	  "signer": "GATEWAY",
//	  "keys": [
//	    {"access_key": "GATEWAY", "secret_key": "wJalrXUt..."},
//	    {"access_key": "ROTATED", "secret_key": "previous_secret"}
//	  ]
//	}
//
// Keys other than the signer still verify grants, which lets a rotated key
// keep honoring URIs it issued until they expire.
type KeyFile struct {
	Signer string    `json:"signer"`
	Keys   []KeyPair `json:"keys"`
}

// LoadKeyFile reads and checks a key file. Every pair must be complete and an
// access key may appear twice only with the same secret.
func LoadKeyFile(path string) (KeyFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return KeyFile{}, fmt.Errorf("read key file: %w: %w", storegate.ErrInvalidConfiguration, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var kf KeyFile
	if err := dec.Decode(&kf); err != nil {
		return KeyFile{}, fmt.Errorf("parse key file %s: %w: %w", path, storegate.ErrInvalidConfiguration, err)
	}

	if _, err := mergePairs(nil, kf.Keys); err != nil {
		return KeyFile{}, fmt.Errorf("key file %s: %w", path, err)
	}

	return kf, nil
}

// mergePairs adds pairs to keys, allocating keys when nil.
func mergePairs(keys map[string]string, pairs []KeyPair) (map[string]string, error) {
	if keys == nil {
		keys = make(map[string]string, len(pairs))
	}

	for i, p := range pairs {
		if !p.complete() {
			return nil, fmt.Errorf("pair %d: %w: %w", i, ErrIncompleteKeyPair, storegate.ErrInvalidConfiguration)
		}
		if existing, ok := keys[p.AccessKey]; ok && existing != p.SecretKey {
			return nil, fmt.Errorf("%s: %w: %w", p.AccessKey, ErrConflictingKey, storegate.ErrInvalidConfiguration)
		}
		keys[p.AccessKey] = p.SecretKey
	}

	return keys, nil
}
