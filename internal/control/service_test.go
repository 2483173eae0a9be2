package control

import (
	"strings"
	"testing"

	"github.com/vietddude/vaultflow/internal/core/config"
)

func TestNewService_UnknownBackend(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Storage.Backend = "etcd"

	if _, err := NewService(cfg); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestNewService_BadRedisURL(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Storage.Backend = "memory"
	cfg.Redis.URL = "not-a-redis-url"

	_, err := NewService(cfg)
	if err == nil {
		t.Fatal("expected error for malformed redis URL")
	}
	if !strings.Contains(err.Error(), "redis") {
		t.Errorf("error should mention redis: %v", err)
	}
}
