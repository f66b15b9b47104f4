package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 1000 {
		t.Errorf("Expected max connections 1000, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.JWTSecret != "" {
		t.Error("Expected JWT auth disabled by default")
	}

	if cfg.Index.M != 32 {
		t.Errorf("Expected M=32, got %d", cfg.Index.M)
	}
	if cfg.Index.EfConstruction != 64 {
		t.Errorf("Expected EfConstruction=64, got %d", cfg.Index.EfConstruction)
	}
	if cfg.Index.Dimension != 768 {
		t.Errorf("Expected Dimension=768, got %d", cfg.Index.Dimension)
	}
	if cfg.Index.Similarity != "cosine" {
		t.Errorf("Expected similarity cosine, got %s", cfg.Index.Similarity)
	}

	if cfg.PQ.Enabled {
		t.Error("Expected PQ disabled by default")
	}
	if cfg.PQ.NumSubvectors != 16 {
		t.Errorf("Expected NumSubvectors=16, got %d", cfg.PQ.NumSubvectors)
	}
}

func clearEnv(t *testing.T, keys []string) {
	t.Helper()
	original := make(map[string]string, len(keys))
	for _, k := range keys {
		original[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

var envKeys = []string{
	"VAMANA_HOST", "VAMANA_PORT", "VAMANA_MAX_CONNECTIONS", "VAMANA_REQUEST_TIMEOUT",
	"VAMANA_RATE_LIMIT_RPS", "VAMANA_RATE_LIMIT_BURST", "VAMANA_JWT_SECRET",
	"VAMANA_DIMENSION", "VAMANA_SIMILARITY", "VAMANA_M", "VAMANA_EF_CONSTRUCTION", "VAMANA_ALPHA",
	"VAMANA_PQ_ENABLED", "VAMANA_PQ_SUBVECTORS", "VAMANA_PQ_CENTERED", "VAMANA_PQ_RERANK_FACTOR",
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t, envKeys)

	os.Setenv("VAMANA_HOST", "127.0.0.1")
	os.Setenv("VAMANA_PORT", "8080")
	os.Setenv("VAMANA_MAX_CONNECTIONS", "5000")
	os.Setenv("VAMANA_REQUEST_TIMEOUT", "60s")
	os.Setenv("VAMANA_JWT_SECRET", "topsecret")

	os.Setenv("VAMANA_DIMENSION", "1536")
	os.Setenv("VAMANA_SIMILARITY", "euclidean")
	os.Setenv("VAMANA_M", "48")
	os.Setenv("VAMANA_EF_CONSTRUCTION", "128")
	os.Setenv("VAMANA_ALPHA", "1.4")

	os.Setenv("VAMANA_PQ_ENABLED", "true")
	os.Setenv("VAMANA_PQ_SUBVECTORS", "32")

	cfg := LoadFromEnv()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 5000 {
		t.Errorf("Expected max connections 5000, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Errorf("Expected request timeout 60s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.JWTSecret != "topsecret" {
		t.Errorf("Expected JWT secret to be set, got %q", cfg.Server.JWTSecret)
	}

	if cfg.Index.Dimension != 1536 {
		t.Errorf("Expected Dimension=1536, got %d", cfg.Index.Dimension)
	}
	if cfg.Index.Similarity != "euclidean" {
		t.Errorf("Expected similarity euclidean, got %s", cfg.Index.Similarity)
	}
	if cfg.Index.M != 48 {
		t.Errorf("Expected M=48, got %d", cfg.Index.M)
	}
	if cfg.Index.EfConstruction != 128 {
		t.Errorf("Expected EfConstruction=128, got %d", cfg.Index.EfConstruction)
	}
	if cfg.Index.Alpha != 1.4 {
		t.Errorf("Expected Alpha=1.4, got %f", cfg.Index.Alpha)
	}

	if !cfg.PQ.Enabled {
		t.Error("Expected PQ enabled")
	}
	if cfg.PQ.NumSubvectors != 32 {
		t.Errorf("Expected NumSubvectors=32, got %d", cfg.PQ.NumSubvectors)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	clearEnv(t, envKeys)

	os.Setenv("VAMANA_PORT", "invalid")
	cfg := LoadFromEnv()

	if cfg.Server.Port != 7070 {
		t.Errorf("Expected default port 7070 for invalid value, got %d", cfg.Server.Port)
	}
}

func TestLoadFromEnv_DefaultsWhenNotSet(t *testing.T) {
	clearEnv(t, envKeys)

	cfg := LoadFromEnv()
	defaults := Default()

	if cfg.Server.Host != defaults.Server.Host {
		t.Errorf("Expected default host, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != defaults.Server.Port {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Index.M != defaults.Index.M {
		t.Errorf("Expected default M, got %d", cfg.Index.M)
	}
	if cfg.PQ.Enabled != defaults.PQ.Enabled {
		t.Errorf("Expected default PQ enabled, got %v", cfg.PQ.Enabled)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "Valid default config",
			config:  Default(),
			wantErr: false,
		},
		{
			name: "Invalid port (too low)",
			config: &Config{
				Server: ServerConfig{Port: 0, MaxConnections: 1, RateLimitRPS: 1},
				Index:  IndexConfig{Dimension: 8, M: 2, EfConstruction: 2, Alpha: 1},
			},
			wantErr: true,
		},
		{
			name: "Invalid port (too high)",
			config: &Config{
				Server: ServerConfig{Port: 70000, MaxConnections: 1, RateLimitRPS: 1},
				Index:  IndexConfig{Dimension: 8, M: 2, EfConstruction: 2, Alpha: 1},
			},
			wantErr: true,
		},
		{
			name: "Invalid M (too low)",
			config: &Config{
				Server: ServerConfig{Port: 7070, MaxConnections: 1, RateLimitRPS: 1},
				Index:  IndexConfig{Dimension: 8, M: 0, EfConstruction: 2, Alpha: 1},
			},
			wantErr: true,
		},
		{
			name: "Invalid dimension",
			config: &Config{
				Server: ServerConfig{Port: 7070, MaxConnections: 1, RateLimitRPS: 1},
				Index:  IndexConfig{Dimension: 0, M: 2, EfConstruction: 2, Alpha: 1},
			},
			wantErr: true,
		},
		{
			name: "Invalid alpha",
			config: &Config{
				Server: ServerConfig{Port: 7070, MaxConnections: 1, RateLimitRPS: 1},
				Index:  IndexConfig{Dimension: 8, M: 2, EfConstruction: 2, Alpha: 0.5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "localhost",
		Port: 8080,
	}

	addr := cfg.Address()
	expected := "localhost:8080"

	if addr != expected {
		t.Errorf("Expected address %s, got %s", expected, addr)
	}

	defaultCfg := Default()
	addr = defaultCfg.Server.Address()
	expected = "0.0.0.0:7070"

	if addr != expected {
		t.Errorf("Expected default address %s, got %s", expected, addr)
	}
}
