package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	configPath := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8080
database:
  driver: sqlite
  sqlite:
    path: /tmp/original.db
metrics:
  enabled: true
`)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "/tmp/original.db", cfg.Database.SQLite.Path)
				assert.True(t, cfg.Metrics.Enabled)
			},
		},
		{
			name: "string override - server.host",
			envVars: map[string]string{
				"QAHUB_SERVER_HOST": "localhost",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.Server.Host)
			},
		},
		{
			name: "int override - server.port",
			envVars: map[string]string{
				"QAHUB_SERVER_PORT": "9000",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
			},
		},
		{
			name: "nested field override - database.sqlite.path",
			envVars: map[string]string{
				"QAHUB_DATABASE_SQLITE_PATH": "/data/qa.db",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/qa.db", cfg.Database.SQLite.Path)
			},
		},
		{
			name: "boolean override - metrics.enabled false",
			envVars: map[string]string{
				"QAHUB_METRICS_ENABLED": "false",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Metrics.Enabled)
			},
		},
		{
			name: "slice override - server.cors_origins",
			envVars: map[string]string{
				"QAHUB_SERVER_CORS_ORIGINS": "http://a.example,http://b.example",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t,
					[]string{"http://a.example", "http://b.example"},
					cfg.Server.CORSOrigins)
			},
		},
		{
			name: "uint override - simulator.seed",
			envVars: map[string]string{
				"QAHUB_SIMULATOR_SEED": "42",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, uint64(42), cfg.Simulator.Seed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(configPath)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, DefaultDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultSQLitePath, cfg.Database.SQLite.Path)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.True(t, cfg.Seed.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.False(t, cfg.Archive.S3.Enabled)
	assert.Equal(t, DefaultArchivePrefix, cfg.Archive.S3.Prefix)
	assert.Equal(t, DefaultArchiveQueueSize, cfg.Archive.S3.QueueSize)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.Server.RateLimit.RequestsPerMinute)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MergesFilesInOrder(t *testing.T) {
	base := writeConfig(t, `
server:
  port: 8100
database:
  sqlite:
    path: base.db
`)
	override := writeConfig(t, `
database:
  sqlite:
    path: override.db
`)

	cfg, err := Load(base, override)
	require.NoError(t, err)

	assert.Equal(t, 8100, cfg.Server.Port)
	assert.Equal(t, "override.db", cfg.Database.SQLite.Path)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: yaml: content:")

	_, err := Load(configPath)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)

		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errSubstr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name: "port out of range",
			mutate: func(cfg *Config) {
				cfg.Server.Port = 70000
			},
			wantErr:   true,
			errSubstr: "out of range",
		},
		{
			name: "unknown driver",
			mutate: func(cfg *Config) {
				cfg.Database.Driver = "mysql"
			},
			wantErr:   true,
			errSubstr: "unsupported database driver",
		},
		{
			name: "postgres without host",
			mutate: func(cfg *Config) {
				cfg.Database.Driver = "postgres"
				cfg.Database.Postgres.Host = ""
			},
			wantErr:   true,
			errSubstr: "database.postgres.host",
		},
		{
			name: "postgres with host is valid",
			mutate: func(cfg *Config) {
				cfg.Database.Driver = "postgres"
				cfg.Database.Postgres.Host = "db.internal"
			},
		},
		{
			name: "rate limit enabled with zero rpm",
			mutate: func(cfg *Config) {
				cfg.Server.RateLimit.Enabled = true
				cfg.Server.RateLimit.RequestsPerMinute = 0
			},
			wantErr:   true,
			errSubstr: "requests_per_minute",
		},
		{
			name: "metrics path without slash",
			mutate: func(cfg *Config) {
				cfg.Metrics.Path = "metrics"
			},
			wantErr:   true,
			errSubstr: "metrics.path",
		},
		{
			name: "archive enabled without bucket",
			mutate: func(cfg *Config) {
				cfg.Archive.S3.Enabled = true
			},
			wantErr:   true,
			errSubstr: "archive.s3.bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)

				return
			}

			require.NoError(t, err)
		})
	}
}
