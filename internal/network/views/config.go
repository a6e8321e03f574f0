// internal/network/views/config.go
package views

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"beacon-network/internal/common/config"
	"beacon-network/internal/models"
)

// Config is the network's own identity as published in its metadata.
type Config struct {
	BeaconID     string
	Name         string
	APIVersion   string
	BaseURL      string
	Description  string
	Environment  string
	Version      string
	Organization config.OrganizationConfig

	// Template supplies curated entry type definitions that take precedence
	// over the ones backends declare.
	Template *models.BeaconConfiguration
}

func LoadConfig(app config.AppConfig, network config.NetworkConfig) (*Config, error) {
	cfg := &Config{
		BeaconID:     network.BeaconID,
		Name:         network.Name,
		APIVersion:   network.APIVersion,
		BaseURL:      strings.TrimSuffix(network.BaseURL, "/"),
		Description:  network.Description,
		Environment:  app.Environment,
		Version:      app.Version,
		Organization: network.Organization,
	}
	if network.ConfigurationTemplate == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(network.ConfigurationTemplate)
	if err != nil {
		return nil, fmt.Errorf("read configuration template: %w", err)
	}
	var doc models.ConfigurationResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse configuration template: %w", err)
	}
	cfg.Template = &doc.Response
	return cfg, nil
}
