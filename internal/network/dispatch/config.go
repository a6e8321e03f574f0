// internal/network/dispatch/config.go
package dispatch

import (
	"time"

	"beacon-network/internal/common/config"
)

const DefaultUserAgent = "BN/2.0.0"

type Config struct {
	// RequestTimeout bounds every backend call, measured from dispatch.
	RequestTimeout time.Duration
	// AwaitTimeout is the grace the join step allows past RequestTimeout
	// before abandoning a job that has not reported.
	AwaitTimeout time.Duration
	UserAgent    string
}

func LoadConfig(cfg config.DispatchConfig) *Config {
	c := &Config{
		RequestTimeout: cfg.RequestTimeoutDuration(),
		AwaitTimeout:   cfg.AwaitTimeoutDuration(),
		UserAgent:      cfg.UserAgent,
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 600 * time.Second
	}
	if c.AwaitTimeout < 0 {
		c.AwaitTimeout = 0
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}
