package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 8080 || cfg.Store.Driver != StoreDriverPostgres || cfg.Sequence.Driver != SequenceDriverPostgres {
		t.Fatalf("unexpected defaults %+v %+v %+v", cfg.App, cfg.Store, cfg.Sequence)
	}
	if cfg.Auth.PermissionCacheTTL != 5*time.Minute || cfg.Auth.CookieName != "access_token" {
		t.Fatalf("unexpected auth defaults %+v", cfg.Auth)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COMMERCE_APP_PORT", "9999")
	t.Setenv("COMMERCE_STORE_DRIVER", "memory")
	t.Setenv("COMMERCE_SEQUENCE_DRIVER", "redis")
	t.Setenv("COMMERCE_AUTH_PERMISSION_CACHE_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9999 || cfg.Store.Driver != StoreDriverMemory || cfg.Sequence.Driver != SequenceDriverRedis {
		t.Fatalf("overrides not applied: %+v %+v %+v", cfg.App, cfg.Store, cfg.Sequence)
	}
	if cfg.Auth.PermissionCacheTTL != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %s", cfg.Auth.PermissionCacheTTL)
	}
}

func TestLoad_RejectsIncompatibleDrivers(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown store", env: map[string]string{"COMMERCE_STORE_DRIVER": "mongo"}, want: "store.driver"},
		{name: "postgres sequence on memory store", env: map[string]string{"COMMERCE_STORE_DRIVER": "memory"}, want: "requires store.driver postgres"},
		{name: "redis sequence without redis", env: map[string]string{"COMMERCE_SEQUENCE_DRIVER": "redis", "COMMERCE_REDIS_ENABLED": "false", "COMMERCE_AUTH_PERMISSION_CACHE_TTL": "0s"}, want: "requires redis.enabled"},
		{name: "cache without redis", env: map[string]string{"COMMERCE_REDIS_ENABLED": "false"}, want: "permission_cache_ttl"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
