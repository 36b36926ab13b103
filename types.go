package storegate

import (
	"fmt"
	"regexp"
	"time"
)

// GrantTTL is the lifetime of every access grant issued by the service.
const GrantTTL = 10 * time.Minute

// Permission is the operation an access grant allows on its object.
type Permission string

const (
	PermissionRead      Permission = "read"
	PermissionWrite     Permission = "write"
	PermissionReadWrite Permission = "read_write"
	PermissionDelete    Permission = "delete"
)

// IsValid reports whether p is one of the defined permissions.
func (p Permission) IsValid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionReadWrite, PermissionDelete:
		return true
	default:
		return false
	}
}

func (p Permission) String() string {
	return string(p)
}

// ParsePermission converts s to a Permission, returning ErrInvalidInput for
// anything other than read, write, read_write or delete.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid permission: %s (valid permissions: read, write, read_write, delete): %w", s, ErrInvalidInput)
	}
	return p, nil
}

// ObjectRef names an object inside a container.
type ObjectRef struct {
	Container string `json:"container"`
	Name      string `json:"name"`
}

// String returns "container/name".
func (r ObjectRef) String() string {
	return r.Container + "/" + r.Name
}

// AccessGrant is a capability URI scoped to one object and one permission.
type AccessGrant struct {
	Object     ObjectRef  `json:"object"`
	URI        string     `json:"uri"`
	Permission Permission `json:"permission"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// UploadOptions controls how an ObjectStore commits an upload.
type UploadOptions struct {
	// Overwrite allows replacing an existing object of the same name.
	Overwrite bool
}

// UploadResult describes a committed upload.
type UploadResult struct {
	Object       ObjectRef `json:"object"`
	BytesWritten int64     `json:"bytes_written"`
	ETag         string    `json:"etag,omitempty"`
}

// CustomerRecord is an entity stored under the composite key (PartitionKey, RowKey).
// Timestamp and ETag are set by the entity store on a successful insert.
type CustomerRecord struct {
	PartitionKey string     `json:"partition_key"`
	RowKey       string     `json:"row_key"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	PhoneNumber  string     `json:"phone_number"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	ETag         string     `json:"etag,omitempty"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a SQL table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}
