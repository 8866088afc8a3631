// Package config loads the ubigeo CLI configuration from ubigeo.yaml, the
// environment (UBIGEO_*) and .env files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// Config is the complete CLI configuration.
type Config struct {
	// DataFile replaces the embedded hierarchy when set.
	DataFile string        `mapstructure:"data_file"`
	Store    StoreConfig   `mapstructure:"store"`
	Remote   RemoteConfig  `mapstructure:"remote"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig selects and configures the local cache backend.
type StoreConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"` // sqlite database file
	Dir         string `mapstructure:"dir"`  // file backend directory
	Table       string `mapstructure:"table"` // SQL table or mongo collection
	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDB     string `mapstructure:"mongo_db"`
}

// RemoteConfig points at the site-management service.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	OrgID   string        `mapstructure:"org_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls where sync metrics are written. Empty disables them.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home := homeDir()
	return &Config{
		Store: StoreConfig{
			Backend:     BackendSQLite,
			Path:        filepath.Join(home, "ubigeo.db"),
			Dir:         filepath.Join(home, "cache"),
			Table:       "ubigeo_kv",
			RedisPrefix: "ubigeo:",
			MongoDB:     "ubigeo",
		},
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".ubigeo")
	}
	return ".ubigeo"
}

// LoadEnvFiles loads KEY=value pairs from each existing file into the
// environment. Variables that are already set win; missing files are skipped.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig reads configFile, or ubigeo.yaml from $HOME/.ubigeo or the
// working directory when configFile is empty, then applies UBIGEO_*
// environment overrides (UBIGEO_STORE_BACKEND, UBIGEO_REMOTE_ORG_ID, ...).
// A missing default file is not an error; a missing explicit one is.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("UBIGEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ubigeo")
		v.SetConfigType("yaml")
		v.AddConfigPath(homeDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_file", d.DataFile)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.table", d.Store.Table)
	v.SetDefault("store.postgres_dsn", d.Store.PostgresDSN)
	v.SetDefault("store.redis_url", d.Store.RedisURL)
	v.SetDefault("store.redis_prefix", d.Store.RedisPrefix)
	v.SetDefault("store.mongo_uri", d.Store.MongoURI)
	v.SetDefault("store.mongo_db", d.Store.MongoDB)
	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.org_id", d.Remote.OrgID)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.Path == "" {
			return &ConfigError{Field: "store.path", Message: "required for the sqlite backend"}
		}
	case BackendFile:
		if c.Store.Dir == "" {
			return &ConfigError{Field: "store.dir", Message: "required for the file backend"}
		}
	case BackendMemory:
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return &ConfigError{Field: "store.postgres_dsn", Message: "required for the postgres backend"}
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return &ConfigError{Field: "store.redis_url", Message: "required for the redis backend"}
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return &ConfigError{Field: "store.mongo_uri", Message: "required for the mongo backend"}
		}
	default:
		return &ConfigError{Field: "store.backend", Message: fmt.Sprintf("unknown backend %q", c.Store.Backend)}
	}

	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigError{Field: "remote.base_url", Message: "must be an absolute http(s) URL"}
		}
	}
	if c.Remote.Timeout <= 0 {
		return &ConfigError{Field: "remote.timeout", Message: "must be positive"}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// RemoteEnabled reports whether a site service is configured.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.BaseURL != "" && c.Remote.OrgID != ""
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
