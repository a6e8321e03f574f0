// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, the config.<env>.yaml overlay and the environment.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromEnv applies the BEACON_NETWORK_* variables understood by existing deployments.
func overrideFromEnv(cfg *Config) {
	if val := envInt("BEACON_NETWORK_REQUEST_TIMEOUT"); val > 0 {
		cfg.Dispatch.RequestTimeout = val
	}
	if val := envInt("BEACON_NETWORK_DISCARD_REQUEST_TIMEOUT"); val > 0 {
		cfg.Dispatch.AwaitTimeout = val
	}
	if val := envInt("BEACON_NETWORK_REFRESH_METADATA_TIMEOUT"); val > 0 {
		cfg.Metadata.RefreshInterval = val
	}
	if val := os.Getenv("BEACON_NETWORK_CONFIG_DIR"); val != "" {
		cfg.Network.ConfigDir = val
	}
	if val := os.Getenv("BEACON_NETWORK_LOG_LEVEL"); val != "" {
		cfg.Audit.Level = strings.ToUpper(val)
	}

	if cfg.Auth.ClientID == "" {
		cfg.Auth.ClientID = os.Getenv("BEACON_NETWORK_CLIENT_ID")
	}
	if cfg.Auth.ClientSecret == "" {
		cfg.Auth.ClientSecret = os.Getenv("BEACON_NETWORK_CLIENT_SECRET")
	}
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
}

func envInt(name string) int {
	val := os.Getenv(name)
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return n
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "beacon-network"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "2.0.0"
	}

	if cfg.Network.BeaconID == "" {
		cfg.Network.BeaconID = "beacon-network"
	}
	if cfg.Network.Name == "" {
		cfg.Network.Name = "Beacon Network"
	}
	if cfg.Network.APIVersion == "" {
		cfg.Network.APIVersion = "v2.0.0"
	}
	cfg.Network.BaseURL = strings.TrimSuffix(cfg.Network.BaseURL, "/")
	if cfg.Network.ConfigDir == "" {
		cfg.Network.ConfigDir = "./configs"
	}
	if cfg.Network.BackendsFile == "" {
		cfg.Network.BackendsFile = "beacon-network.json"
	}

	if cfg.Dispatch.RequestTimeout == 0 {
		cfg.Dispatch.RequestTimeout = 600
	}
	if cfg.Dispatch.AwaitTimeout == 0 {
		cfg.Dispatch.AwaitTimeout = 5
	}
	if cfg.Dispatch.UserAgent == "" {
		cfg.Dispatch.UserAgent = "BN/2.0.0"
	}

	if cfg.Metadata.RefreshInterval == 0 {
		cfg.Metadata.RefreshInterval = 60
	}
	if cfg.Metadata.FetchTimeout == 0 {
		cfg.Metadata.FetchTimeout = 30000
	}
	if cfg.Metadata.MaxConcurrency == 0 {
		cfg.Metadata.MaxConcurrency = 8
	}

	if cfg.Audit.Level == "" {
		cfg.Audit.Level = "METADATA"
	}
	if cfg.Audit.RedisTTL == 0 {
		cfg.Audit.RedisTTL = 7 * 24 * 3600
	}
	if cfg.Audit.ElasticsearchIndex == "" {
		cfg.Audit.ElasticsearchIndex = "beacon-network-log"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.ApplicationName == "" {
		cfg.Database.Postgres.ApplicationName = "beacon-network"
	}
	if cfg.Database.Postgres.ConnMaxLifetime == 0 {
		cfg.Database.Postgres.ConnMaxLifetime = 1800
	}
	if cfg.Database.Postgres.StatementTimeout == 0 {
		cfg.Database.Postgres.StatementTimeout = 5000
	}
	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 20
	}
	if cfg.Database.Redis.MinIdle == 0 {
		cfg.Database.Redis.MinIdle = 2
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}
}

var auditLevels = map[string]bool{
	"NONE": true, "METADATA": true, "REQUESTS": true, "RESPONSES": true, "ALL": true,
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Network.BaseURL == "" {
		return fmt.Errorf("network.base_url is required")
	}
	if !strings.HasPrefix(cfg.Network.BaseURL, "http://") && !strings.HasPrefix(cfg.Network.BaseURL, "https://") {
		return fmt.Errorf("network.base_url must be an absolute http(s) URL")
	}
	if !auditLevels[cfg.Audit.Level] {
		return fmt.Errorf("audit.level %q is not one of NONE, METADATA, REQUESTS, RESPONSES, ALL", cfg.Audit.Level)
	}

	if cfg.Audit.PostgresEnabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}
	if cfg.Audit.ElasticEnabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}
	if cfg.Audit.RedisEnabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Tracing.Enabled && cfg.Tracing.JaegerEndpoint == "" {
		return fmt.Errorf("tracing.jaeger_endpoint is required when tracing is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
