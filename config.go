package lakeshift

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	defaultClientTimeout   = 900 * time.Second // network round trip + reading out the http response
	defaultCatalog         = "hive_metastore"
	defaultSchema          = "default"
	defaultInsertBatchSize = 1000
)

// Config is the set of connection and transfer parameters for one process.
// It is constructed once at startup and passed into every component's
// constructor; no component reads process-wide state on its own.
type Config struct {
	// Destination lakehouse.
	Host        string `toml:"host"`         // e.g. dbc-abc123.cloud.example.com
	Token       string `toml:"token"`        // bearer token
	WarehouseID string `toml:"warehouse_id"` // SQL warehouse executing DDL/DML
	Catalog     string `toml:"catalog"`
	Schema      string `toml:"schema"`

	// Source query service.
	SourceHost     string `toml:"source_host"`
	SourceToken    string `toml:"source_token"`
	SourceDatabase string `toml:"source_database"`

	Timeout             time.Duration `toml:"-"`
	InsertBatchSize     int           `toml:"insert_batch_size"`
	EnableOpenTelemetry bool          `toml:"enable_opentelemetry"`
	LogLevel            string        `toml:"log_level"`
}

// NewConfig creates a new config with default values.
func NewConfig() *Config {
	return &Config{
		Catalog:         defaultCatalog,
		Schema:          defaultSchema,
		Timeout:         defaultClientTimeout,
		InsertBatchSize: defaultInsertBatchSize,
	}
}

// LoadConfig builds a Config from an optional TOML profile file overridden by
// environment variables. Pass an empty profile path to use the environment
// alone.
func LoadConfig(profilePath string) (*Config, error) {
	cfg := NewConfig()
	if profilePath != "" {
		if _, err := toml.DecodeFile(profilePath, cfg); err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "decode profile %s: %v", profilePath, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Host, "LAKESHIFT_HOST")
	setString(&cfg.Token, "LAKESHIFT_TOKEN")
	setString(&cfg.WarehouseID, "LAKESHIFT_WAREHOUSE_ID")
	setString(&cfg.Catalog, "LAKESHIFT_CATALOG")
	setString(&cfg.Schema, "LAKESHIFT_SCHEMA")
	setString(&cfg.SourceHost, "LAKESHIFT_SOURCE_HOST")
	setString(&cfg.SourceToken, "LAKESHIFT_SOURCE_TOKEN")
	setString(&cfg.SourceDatabase, "LAKESHIFT_SOURCE_DATABASE")
	setString(&cfg.LogLevel, "LAKESHIFT_LOG_LEVEL")
	if v := os.Getenv("LAKESHIFT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("LAKESHIFT_INSERT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.InsertBatchSize = n
		}
	}
}

// Validate reports every missing required field at once, so a misconfigured
// environment can be fixed in one pass.
func (cfg *Config) Validate() error {
	var missing []string
	if cfg.Host == "" {
		missing = append(missing, "host")
	}
	if cfg.Token == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidConfig, "missing required settings: %s", strings.Join(missing, ", "))
	}
	if cfg.InsertBatchSize < 0 {
		return errors.Wrapf(ErrInvalidConfig, "insert batch size must not be negative, got %d", cfg.InsertBatchSize)
	}
	return nil
}
