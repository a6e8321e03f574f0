// internal/common/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Network  NetworkConfig  `mapstructure:"network"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// NetworkConfig describes the gateway's own identity and public contract.
type NetworkConfig struct {
	BeaconID              string             `mapstructure:"beacon_id"`
	Name                  string             `mapstructure:"name"`
	APIVersion            string             `mapstructure:"api_version"`
	BaseURL               string             `mapstructure:"base_url"`
	PathPrefix            string             `mapstructure:"path_prefix"`
	Description           string             `mapstructure:"description"`
	Organization          OrganizationConfig `mapstructure:"organization"`
	ConfigDir             string             `mapstructure:"config_dir"`
	BackendsFile          string             `mapstructure:"backends_file"`
	ConfigurationTemplate string             `mapstructure:"configuration_template"`
}

// BackendsPath returns the location of the backend list file.
func (n NetworkConfig) BackendsPath() string {
	if filepath.IsAbs(n.BackendsFile) {
		return n.BackendsFile
	}
	return filepath.Join(n.ConfigDir, n.BackendsFile)
}

type OrganizationConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type DispatchConfig struct {
	RequestTimeout int    `mapstructure:"request_timeout"` // seconds
	AwaitTimeout   int    `mapstructure:"await_timeout"`   // seconds
	UserAgent      string `mapstructure:"user_agent"`
}

type MetadataConfig struct {
	RefreshInterval int `mapstructure:"refresh_interval"` // minutes
	FetchTimeout    int `mapstructure:"fetch_timeout"`    // milliseconds
	MaxConcurrency  int `mapstructure:"max_concurrency"`
}

// AuthConfig holds the network's own identity provider client.
type AuthConfig struct {
	OIDCEndpoint string `mapstructure:"oidc_endpoint"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type AuditConfig struct {
	Level              string `mapstructure:"level"`
	PostgresEnabled    bool   `mapstructure:"postgres_enabled"`
	RedisEnabled       bool   `mapstructure:"redis_enabled"`
	RedisTTL           int    `mapstructure:"redis_ttl"` // seconds
	ElasticsearchIndex string `mapstructure:"elasticsearch_index"`
	ElasticEnabled     bool   `mapstructure:"elasticsearch_enabled"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`

	ApplicationName  string `mapstructure:"application_name"`
	ConnMaxLifetime  int    `mapstructure:"conn_max_lifetime"` // seconds
	StatementTimeout int    `mapstructure:"statement_timeout"` // milliseconds, 0 keeps the server default
}

// GetDSN returns the PostgreSQL connection string. The application name and
// statement timeout are sent as run-time parameters.
func (p PostgresConfig) GetDSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
	if p.ApplicationName != "" {
		dsn += " application_name=" + p.ApplicationName
	}
	if p.StatementTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", p.StatementTimeout)
	}
	return dsn
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	MinIdle  int    `mapstructure:"min_idle"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

// RequestTimeoutDuration is the per-call bound for backend queries.
func (d DispatchConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(d.RequestTimeout) * time.Second
}

func (d DispatchConfig) AwaitTimeoutDuration() time.Duration {
	return time.Duration(d.AwaitTimeout) * time.Second
}

func (m MetadataConfig) RefreshIntervalDuration() time.Duration {
	return time.Duration(m.RefreshInterval) * time.Minute
}
