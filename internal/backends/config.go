// internal/backends/config.go
package backends

import (
	"time"

	"beacon-network/internal/common/config"
)

type Config struct {
	// Path is the JSON file holding the ordered backend root URLs.
	Path            string
	RefreshInterval time.Duration
}

func LoadConfig(network config.NetworkConfig, metadata config.MetadataConfig) *Config {
	return &Config{
		Path:            network.BackendsPath(),
		RefreshInterval: metadata.RefreshIntervalDuration(),
	}
}
