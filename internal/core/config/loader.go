package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "postgres"
	}
	if cfg.Engine.BatchRearmDelay == 0 {
		cfg.Engine.BatchRearmDelay = 5 * time.Second
	}
	if cfg.Engine.ReconcileInterval == 0 {
		cfg.Engine.ReconcileInterval = time.Minute
	}
	if cfg.Engine.PollInterval == 0 {
		cfg.Engine.PollInterval = time.Second
	}
	if cfg.Engine.ClaimLimit == 0 {
		cfg.Engine.ClaimLimit = 16
	}
	if cfg.Venue.Timeout == 0 {
		cfg.Venue.Timeout = 10 * time.Second
	}
	if cfg.Venue.MaxRetries == 0 {
		cfg.Venue.MaxRetries = 3
	}
}
