// Package config provides configuration loading and validation for storegate.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (STOREGATE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with STOREGATE_ prefix:
//   - server.port → STOREGATE_SERVER_PORT
//   - entity_store.backend → STOREGATE_ENTITY_STORE_BACKEND
//   - object_store.azure.connection_string → STOREGATE_OBJECT_STORE_AZURE_CONNECTION_STRING
//
// # Configuration Structure
//
// The Config struct contains:
//   - Env: "prod" switches logging to JSON
//   - Server: port, max_upload_size, read and write timeouts
//   - Service: overwrite policy and per-operation timeout
//   - ObjectStore: backend (azure, s3, filesystem) and its settings
//   - EntityStore: backend (aztables, dynamodb, badger, sqlite, postgres), table and its settings
//   - CORS: cross-origin resource sharing settings
//   - Metrics: whether and where to expose Prometheus metrics
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags. A failure wraps
// storegate.ErrInvalidConfiguration.
package config
