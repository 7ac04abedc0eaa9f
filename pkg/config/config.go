package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix for environment variable overrides,
	// e.g. QAHUB_SERVER_PORT=9000.
	EnvPrefix = "QAHUB"

	// DefaultHost is the default listen host.
	DefaultHost = "0.0.0.0"

	// DefaultPort is the default listen port.
	DefaultPort = 8000

	// DefaultDriver is the default database driver.
	DefaultDriver = "sqlite"

	// DefaultSQLitePath is the default SQLite database file.
	DefaultSQLitePath = "qa_hub.db"

	// DefaultRequestsPerMinute is the default per-IP rate limit.
	DefaultRequestsPerMinute = 120

	// DefaultMetricsPath is the default Prometheus scrape path.
	DefaultMetricsPath = "/metrics"

	// DefaultArchivePrefix is the default S3 key prefix for archived reports.
	DefaultArchivePrefix = "qahub/reports"

	// DefaultArchiveQueueSize is the default number of reports buffered
	// for archiving.
	DefaultArchiveQueueSize = 64
)

// Config is the root configuration for qahub.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Seed      SeedConfig      `yaml:"seed" mapstructure:"seed"`
	Simulator SimulatorConfig `yaml:"simulator" mapstructure:"simulator"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
}

// SeedConfig controls seeding of sample rows into empty tables.
type SeedConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SimulatorConfig configures the mock test execution simulator.
type SimulatorConfig struct {
	// Seed pins the random source. Zero seeds from the current time.
	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// defaults lists every configuration key with its default value. Viper
// only resolves environment overrides for keys it knows about, so each
// field must be registered here.
var defaults = map[string]any{
	"server.host":                           DefaultHost,
	"server.port":                           DefaultPort,
	"server.cors_origins":                   []string{},
	"server.rate_limit.enabled":             false,
	"server.rate_limit.requests_per_minute": DefaultRequestsPerMinute,
	"server.rate_limit.trust_proxy_headers": false,
	"database.driver":                       DefaultDriver,
	"database.sqlite.path":                  DefaultSQLitePath,
	"database.postgres.host":                "localhost",
	"database.postgres.port":                5432,
	"database.postgres.user":                "",
	"database.postgres.password":            "",
	"database.postgres.database":            "qahub",
	"database.postgres.ssl_mode":            "disable",
	"seed.enabled":                          true,
	"simulator.seed":                        0,
	"metrics.enabled":                       true,
	"metrics.path":                          DefaultMetricsPath,
	"archive.s3.enabled":                    false,
	"archive.s3.endpoint_url":               "",
	"archive.s3.region":                     "",
	"archive.s3.bucket":                     "",
	"archive.s3.access_key_id":              "",
	"archive.s3.secret_access_key":          "",
	"archive.s3.force_path_style":           false,
	"archive.s3.prefix":                     DefaultArchivePrefix,
	"archive.s3.queue_size":                 DefaultArchiveQueueSize,
}

// Load reads the given configuration files, merging them in order, and
// applies QAHUB_* environment overrides on top. With no paths the
// configuration is built from defaults and the environment alone.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills values that were explicitly set to their zero value.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Server.RateLimit.RequestsPerMinute == 0 {
		c.Server.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}

	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Archive.S3.Prefix == "" {
		c.Archive.S3.Prefix = DefaultArchivePrefix
	}

	if c.Archive.S3.QueueSize <= 0 {
		c.Archive.S3.QueueSize = DefaultArchiveQueueSize
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("server.rate_limit.requests_per_minute must be positive")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	if c.Archive.S3.Enabled && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.bucket is required when archiving is enabled")
	}

	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
