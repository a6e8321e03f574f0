// internal/network/metadata/config.go
package metadata

import (
	"time"

	"beacon-network/internal/common/config"
)

type Config struct {
	FetchTimeout   time.Duration
	MaxConcurrency int
}

func LoadConfig(cfg config.MetadataConfig) *Config {
	c := &Config{
		FetchTimeout:   time.Duration(cfg.FetchTimeout) * time.Millisecond,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 8
	}
	return c
}
