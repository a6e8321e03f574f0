package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// ==========================
// Loader Tests
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
network:
  base_url: "https://bn.example.org/api/"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://bn.example.org/api", cfg.Network.BaseURL)
	assert.Equal(t, "beacon-network.json", cfg.Network.BackendsFile)
	assert.Equal(t, 600, cfg.Dispatch.RequestTimeout)
	assert.Equal(t, 5, cfg.Dispatch.AwaitTimeout)
	assert.Equal(t, "BN/2.0.0", cfg.Dispatch.UserAgent)
	assert.Equal(t, 60, cfg.Metadata.RefreshInterval)
	assert.Equal(t, "METADATA", cfg.Audit.Level)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10*time.Minute, cfg.Dispatch.RequestTimeoutDuration())
	assert.Equal(t, time.Hour, cfg.Metadata.RefreshIntervalDuration())
	assert.Equal(t, "beacon-network", cfg.Database.Postgres.ApplicationName)
	assert.Equal(t, 5000, cfg.Database.Postgres.StatementTimeout)
	assert.Equal(t, 20, cfg.Database.Redis.PoolSize)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	base := PostgresConfig{Host: "db", Port: 5432, User: "bn", Password: "pw", Database: "audit", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=bn password=pw dbname=audit sslmode=disable", base.GetDSN())

	tuned := base
	tuned.ApplicationName = "beacon-network"
	tuned.StatementTimeout = 5000
	assert.Equal(t, "host=db port=5432 user=bn password=pw dbname=audit sslmode=disable"+
		" application_name=beacon-network statement_timeout=5000", tuned.GetDSN())
}

func TestLoadFromFile_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BEACON_NETWORK_REQUEST_TIMEOUT", "30")
	t.Setenv("BEACON_NETWORK_DISCARD_REQUEST_TIMEOUT", "2")
	t.Setenv("BEACON_NETWORK_REFRESH_METADATA_TIMEOUT", "15")
	t.Setenv("BEACON_NETWORK_CONFIG_DIR", "/etc/beacon")
	t.Setenv("BEACON_NETWORK_LOG_LEVEL", "responses")

	path := writeConfigFile(t, `
network:
  base_url: "https://bn.example.org"
dispatch:
  request_timeout: 100
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Dispatch.RequestTimeout)
	assert.Equal(t, 2, cfg.Dispatch.AwaitTimeout)
	assert.Equal(t, 15, cfg.Metadata.RefreshInterval)
	assert.Equal(t, "/etc/beacon", cfg.Network.ConfigDir)
	assert.Equal(t, "RESPONSES", cfg.Audit.Level)
	assert.Equal(t, filepath.Join("/etc/beacon", "beacon-network.json"), cfg.Network.BackendsPath())
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("TEST_NETWORK_SECRET", "s3cr3t")

	path := writeConfigFile(t, `
network:
  base_url: "https://bn.example.org"
auth:
  client_secret: "${TEST_NETWORK_SECRET}"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.Auth.ClientSecret)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing base url",
			body:    "app:\n  name: bn\n",
			wantErr: "network.base_url is required",
		},
		{
			name:    "relative base url",
			body:    "network:\n  base_url: /beacon\n",
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "unknown audit level",
			body:    "network:\n  base_url: http://bn\naudit:\n  level: VERBOSE\n",
			wantErr: "audit.level",
		},
		{
			name:    "postgres audit without host",
			body:    "network:\n  base_url: http://bn\naudit:\n  postgres_enabled: true\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "tracing without endpoint",
			body:    "network:\n  base_url: http://bn\ntracing:\n  enabled: true\n",
			wantErr: "tracing.jaeger_endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfigFile(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
