package config

import (
	"time"

	"github.com/vietddude/vaultflow/internal/api"
	redisclient "github.com/vietddude/vaultflow/internal/infra/redis"
	"github.com/vietddude/vaultflow/internal/infra/storage/postgres"
	"github.com/vietddude/vaultflow/internal/infra/venue"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   api.Config         `yaml:"server"`
	Storage  StorageConfig      `yaml:"storage"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Venue    venue.Config       `yaml:"venue"`
	Engine   EngineConfig       `yaml:"engine"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// StorageConfig selects the vault store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // postgres, memory
}

// EngineConfig holds scheduling and execution settings.
type EngineConfig struct {
	BatchRearmDelay   time.Duration `yaml:"batch_rearm_delay"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	ClaimLimit        int64         `yaml:"claim_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
