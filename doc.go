// Package storegate provides a storage gateway over an object store and a
// partitioned entity store.
//
// The gateway resolves object references into short-lived, write-scoped
// access grants, streams uploads into existing containers and stores customer
// records under a composite (partition key, row key) address.
//
// # Key Components
//
//   - Service: the three core operations, IssueGrant, Upload and SaveCustomer
//   - ObjectStore: interface for blob backends (Azure Blob Storage, S3, filesystem)
//   - EntityStore: interface for keyed record backends (Azure Tables, DynamoDB,
//     badger, SQLite, PostgreSQL)
//   - GrantSigner / GrantVerifier: signed URIs for objects served by the gateway itself
//
// # Access Grants
//
// Every grant carries PermissionWrite and expires GrantTTL (10 minutes) after
// issuance. The container must exist; the object need not.
//
// # Customer Records
//
// The partition key is the upper-cased last name and first name joined by an
// underscore; the row key is a random UUID. Records are inserted exactly once:
// a key collision fails with ErrInsertConflict and never overwrites.
//
// # Example Usage
//
//	svc, err := storegate.NewService(objects, entities, storegate.DefaultServiceConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	grant, err := svc.IssueGrant(ctx, "uploads", "report.pdf")
//	if errors.Is(err, storegate.ErrContainerNotFound) {
//	    // container missing
//	}
//
//	rowKey, err := svc.SaveCustomer(ctx, "John", "Smith", "j@x.io", "555")
//
// # Errors
//
// Operations return errors wrapping one of the package sentinels:
//
//   - ErrContainerNotFound: the referenced container does not exist
//   - ErrEmptyPayload: an upload carried no bytes
//   - ErrInsertConflict: an entity with the same keys exists
//   - ErrBackendUnavailable: a store timed out or could not be reached
//   - ErrInvalidConfiguration: a store is missing or resolves to nothing usable
//
// Use errors.Is to check, or ErrorKind for a stable name.
package storegate
