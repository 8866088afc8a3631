package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs so no
// real ubigeo.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "ubigeo.db", filepath.Base(cfg.Store.Path))
	assert.Equal(t, "ubigeo_kv", cfg.Store.Table)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.RemoteEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Store.Backend, cfg.Store.Backend)
}

func TestLoadConfigFromWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	yaml := `
store:
  backend: file
  dir: ./cache
remote:
  base_url: https://api.example.com/v1
  org_id: acme
  timeout: 10s
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ubigeo.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "./cache", cfg.Store.Dir)
	assert.Equal(t, "https://api.example.com/v1", cfg.Remote.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, "ubigeo_kv", cfg.Store.Table, "unset keys keep defaults")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: file\n"), 0o644))

	t.Setenv("UBIGEO_STORE_BACKEND", "memory")
	t.Setenv("UBIGEO_REMOTE_ORG_ID", "env-org")
	t.Setenv("UBIGEO_REMOTE_TIMEOUT", "5s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "env-org", cfg.Remote.OrgID)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
}

func TestLoadConfigExplicitFileMissing(t *testing.T) {
	dir := isolate(t)
	_, err := LoadConfig(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "ubigeo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: cassandra\n"), 0o644))

	_, err := LoadConfig(path)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "store.backend", ce.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"file without dir", func(c *Config) { c.Store.Backend = BackendFile; c.Store.Dir = "" }, "store.dir"},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = BackendPostgres }, "store.postgres_dsn"},
		{"redis without url", func(c *Config) { c.Store.Backend = BackendRedis }, "store.redis_url"},
		{"mongo without uri", func(c *Config) { c.Store.Backend = BackendMongo }, "store.mongo_uri"},
		{"relative base url", func(c *Config) { c.Remote.BaseURL = "/api" }, "remote.base_url"},
		{"ftp base url", func(c *Config) { c.Remote.BaseURL = "ftp://example.com" }, "remote.base_url"},
		{"zero timeout", func(c *Config) { c.Remote.Timeout = 0 }, "remote.timeout"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			err := cfg.Validate()
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	cfg := DefaultConfig()
	cfg.Store.Backend = BackendMemory
	cfg.Store.Path = ""
	assert.NoError(t, cfg.Validate(), "memory needs no path")
}

func TestLoadEnvFiles(t *testing.T) {
	dir := isolate(t)
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("UBIGEO_REMOTE_ORG_ID=from-dotenv\nUBIGEO_LOGGING_LEVEL=warn\n"), 0o644))

	// Preset variables win over the file.
	t.Setenv("UBIGEO_LOGGING_LEVEL", "error")
	// Register cleanup for the variable the file sets.
	t.Setenv("UBIGEO_REMOTE_ORG_ID", "")
	require.NoError(t, os.Unsetenv("UBIGEO_REMOTE_ORG_ID"))

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), env))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Remote.OrgID)
	assert.Equal(t, "error", cfg.Logging.Level)
}
