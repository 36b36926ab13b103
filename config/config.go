package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/entitystore"
	gatehttp "github.com/sagarc03/storegate/http"
	"github.com/sagarc03/storegate/objectstore"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for storegate.
type Config struct {
	Env         string              `mapstructure:"env" yaml:"env"`
	Server      ServerConfig        `mapstructure:"server" yaml:"server"`
	Service     ServiceConfig       `mapstructure:"service" yaml:"service"`
	ObjectStore objectstore.Config  `mapstructure:"object_store" yaml:"object_store"`
	EntityStore entitystore.Config  `mapstructure:"entity_store" yaml:"entity_store"`
	CORS        gatehttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Metrics     MetricsConfig       `mapstructure:"metrics" yaml:"metrics"`
	Log         LogConfig           `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64         `mapstructure:"max_upload_size" yaml:"max_upload_size" validate:"min=0"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Overwrite        bool          `mapstructure:"overwrite" yaml:"overwrite"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout" validate:"min=0"`
}

// Storegate converts the section into the core service configuration.
func (c ServiceConfig) Storegate() storegate.ServiceConfig {
	return storegate.ServiceConfig{
		Overwrite:        c.Overwrite,
		OperationTimeout: c.OperationTimeout,
	}
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" validate:"omitempty,startswith=/"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":           "server.port",
	"object-backend": "object_store.backend",
	"entity-backend": "entity_store.backend",
	"table":          "entity_store.table",
	"storage-root":   "object_store.filesystem.root",
	"sqlite-dsn":     "entity_store.sqlite.dsn",
	"postgres-dsn":   "entity_store.postgres.dsn",
	"auto-migrate":   "entity_store.auto_migrate",
	"overwrite":      "service.overwrite",
	"log-level":      "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key that
// may come from the environment needs a default, even an empty one, or
// Unmarshal never sees it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("service.overwrite", true)
	v.SetDefault("service.operation_timeout", 30*time.Second)

	v.SetDefault("object_store.backend", objectstore.BackendFilesystem)
	v.SetDefault("object_store.filesystem.root", "./data")
	v.SetDefault("object_store.filesystem.base_url", "")
	v.SetDefault("object_store.azure.connection_string", "")
	v.SetDefault("object_store.s3.region", "us-east-1")
	v.SetDefault("object_store.s3.endpoint", "")
	v.SetDefault("object_store.s3.access_key_id", "")
	v.SetDefault("object_store.s3.secret_access_key", "")
	v.SetDefault("object_store.filesystem.keys.file", "")
	v.SetDefault("object_store.filesystem.keys.signer", "")

	v.SetDefault("entity_store.backend", entitystore.BackendSQLite)
	v.SetDefault("entity_store.table", "customers")
	v.SetDefault("entity_store.sqlite.dsn", "storegate.db")
	v.SetDefault("entity_store.auto_migrate", false)
	v.SetDefault("entity_store.postgres.dsn", "")
	v.SetDefault("entity_store.aztables.connection_string", "")
	v.SetDefault("entity_store.badger.dir", "")
	v.SetDefault("entity_store.badger.in_memory", false)
	v.SetDefault("entity_store.dynamodb.region", "us-east-1")
	v.SetDefault("entity_store.dynamodb.endpoint", "")
	v.SetDefault("entity_store.dynamodb.access_key_id", "")
	v.SetDefault("entity_store.dynamodb.secret_access_key", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("STOREGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w: %w", storegate.ErrInvalidConfiguration, err)
	}

	return &cfg, nil
}
