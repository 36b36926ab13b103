package keybackend

import "errors"

// ErrKeyNotFound is returned when the access key does not exist in the store.
// It is always joined with storegate.ErrUnauthorized.
var ErrKeyNotFound = errors.New("access key not found")

// ErrNoSigningKey is returned when no key pair is available to sign grants.
var ErrNoSigningKey = errors.New("no signing key")

// ErrIncompleteKeyPair is returned for a key pair missing either half.
var ErrIncompleteKeyPair = errors.New("incomplete key pair")

// ErrConflictingKey is returned when one access key is given two secrets.
var ErrConflictingKey = errors.New("conflicting secrets for access key")
