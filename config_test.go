package lakeshift

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "hive_metastore", cfg.Catalog)
	assert.Equal(t, "default", cfg.Schema)
	assert.Equal(t, 1000, cfg.InsertBatchSize)
	assert.Equal(t, 900*time.Second, cfg.Timeout)
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	cfg := NewConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "host")
	assert.Contains(t, err.Error(), "token")
}

func TestValidateRejectsNegativeBatchSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Host = "h"
	cfg.Token = "t"
	cfg.InsertBatchSize = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LAKESHIFT_HOST", "dbc-1.example.com")
	t.Setenv("LAKESHIFT_TOKEN", "secret")
	t.Setenv("LAKESHIFT_CATALOG", "analytics")
	t.Setenv("LAKESHIFT_TIMEOUT", "30s")
	t.Setenv("LAKESHIFT_INSERT_BATCH_SIZE", "250")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "dbc-1.example.com", cfg.Host)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "analytics", cfg.Catalog)
	assert.Equal(t, "default", cfg.Schema, "unset values keep defaults")
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 250, cfg.InsertBatchSize)
}

func TestLoadConfigProfileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "profile.toml")
	content := `
host = "profile-host"
token = "profile-token"
schema = "profile_schema"
insert_batch_size = 42
`
	require.NoError(t, os.WriteFile(profile, []byte(content), 0o600))
	t.Setenv("LAKESHIFT_HOST", "env-host")

	cfg, err := LoadConfig(profile)
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Host, "environment wins over the profile")
	assert.Equal(t, "profile-token", cfg.Token)
	assert.Equal(t, "profile_schema", cfg.Schema)
	assert.Equal(t, 42, cfg.InsertBatchSize)
}

func TestLoadConfigMissingProfile(t *testing.T) {
	t.Setenv("LAKESHIFT_HOST", "h")
	t.Setenv("LAKESHIFT_TOKEN", "t")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
