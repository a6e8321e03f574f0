// internal/network/tokens/config.go
package tokens

import "beacon-network/internal/common/config"

// Config holds the network's own identity provider client, used for the
// optional first exchange hop.
type Config struct {
	OIDCEndpoint string
	ClientID     string
	ClientSecret string
}

func LoadConfig(cfg config.AuthConfig) *Config {
	return &Config{
		OIDCEndpoint: cfg.OIDCEndpoint,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}
}

// HasIdentityProvider reports whether the first hop is configured.
func (c *Config) HasIdentityProvider() bool {
	return c.OIDCEndpoint != "" && c.ClientID != "" && c.ClientSecret != ""
}
