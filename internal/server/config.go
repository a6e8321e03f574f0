// internal/server/config.go
package server

import (
	"strings"
	"time"

	"beacon-network/internal/common/config"
)

type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PathPrefix is the mount point of the Beacon API, e.g. "/api".
	PathPrefix string
	BeaconID   string
	APIVersion string
}

func LoadConfig(srv config.ServerConfig, network config.NetworkConfig) *Config {
	prefix := strings.TrimSuffix(network.PathPrefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return &Config{
		Address:      srv.Address,
		ReadTimeout:  config.GetDuration(srv.ReadTimeout),
		WriteTimeout: config.GetDuration(srv.WriteTimeout),
		PathPrefix:   prefix,
		BeaconID:     network.BeaconID,
		APIVersion:   network.APIVersion,
	}
}
