// Package keybackend provides SecretStore implementations used to sign and
// verify grants for objects served by the gateway.
package keybackend

import (
	"fmt"
	"slices"

	"github.com/sagarc03/storegate"
)

// MapSecretStore retrieves keys from an in-memory map.
// Suitable for configuration file-based key storage.
type MapSecretStore struct {
	keys   map[string]string
	signer string
}

// NewMapSecretStore creates a new map-based secret store with the given access key to secret key mapping.
func NewMapSecretStore(keys map[string]string) *MapSecretStore {
	return &MapSecretStore{keys: keys}
}

// Lookup retrieves the secret key for the given access key from the map.
func (s *MapSecretStore) Lookup(accessKey string) (string, error) {
	secretKey, found := s.keys[accessKey]
	if !found {
		return "", fmt.Errorf("%w: %w", ErrKeyNotFound, storegate.ErrUnauthorized)
	}
	return secretKey, nil
}

// SigningPair returns the key pair used to sign grants. An empty accessKey
// selects the lexically smallest access key so the choice is stable across
// restarts.
func (s *MapSecretStore) SigningPair(accessKey string) (KeyPair, error) {
	if accessKey != "" {
		secretKey, err := s.Lookup(accessKey)
		if err != nil {
			return KeyPair{}, fmt.Errorf("signing pair %s: %w", accessKey, err)
		}
		return KeyPair{AccessKey: accessKey, SecretKey: secretKey}, nil
	}

	if len(s.keys) == 0 {
		return KeyPair{}, fmt.Errorf("%w: %w", ErrNoSigningKey, storegate.ErrInvalidConfiguration)
	}

	names := make([]string, 0, len(s.keys))
	for k := range s.keys {
		names = append(names, k)
	}
	slices.Sort(names)

	return KeyPair{AccessKey: names[0], SecretKey: s.keys[names[0]]}, nil
}

// Signer returns the key pair chosen to sign grants when the store was
// built by NewSecretStore.
func (s *MapSecretStore) Signer() (KeyPair, error) {
	return s.SigningPair(s.signer)
}

// Len returns the number of key pairs held.
func (s *MapSecretStore) Len() int {
	return len(s.keys)
}
