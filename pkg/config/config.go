package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Server ServerConfig
	Index  IndexConfig
	PQ     PQConfig
}

// ServerConfig holds the line-oriented IPC listener's configuration.
type ServerConfig struct {
	Host            string        // Listen host (default: "0.0.0.0")
	Port            int           // Listen port (default: 7070)
	MaxConnections  int           // Max concurrent connections
	RequestTimeout  time.Duration // Per-command timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	RateLimitRPS    float64       // Per-connection requests/sec
	RateLimitBurst  int           // Per-connection burst size
	JWTSecret       string        // When set, every command other than AUTH requires AUTH first
}

// IndexConfig holds the builder surface configuration (mirrors
// vamana.Config; kept separate so the config package has no dependency on
// the core).
type IndexConfig struct {
	Dimension      int
	Similarity     string // "euclidean" | "dot_product" | "cosine"
	M              int
	EfConstruction int
	Alpha          float64
}

// PQConfig holds Product Quantization codec configuration.
type PQConfig struct {
	Enabled       bool
	NumSubvectors int
	Centered      bool
	RerankFactor  int
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7070,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    200,
			RateLimitBurst:  400,
		},
		Index: IndexConfig{
			Dimension:      768,
			Similarity:     "cosine",
			M:              32,
			EfConstruction: 64,
			Alpha:          1.2,
		},
		PQ: PQConfig{
			Enabled:       false,
			NumSubvectors: 16,
			Centered:      false,
			RerankFactor:  4,
		},
	}
}

// LoadFromEnv loads configuration from VAMANA_* environment variables,
// overlaying Default().
func LoadFromEnv() *Config {
	cfg := Default()

	if host := os.Getenv("VAMANA_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("VAMANA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("VAMANA_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("VAMANA_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if rps := os.Getenv("VAMANA_RATE_LIMIT_RPS"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.Server.RateLimitRPS = r
		}
	}
	if burst := os.Getenv("VAMANA_RATE_LIMIT_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			cfg.Server.RateLimitBurst = b
		}
	}
	if secret := os.Getenv("VAMANA_JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}

	if dim := os.Getenv("VAMANA_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			cfg.Index.Dimension = d
		}
	}
	if sim := os.Getenv("VAMANA_SIMILARITY"); sim != "" {
		cfg.Index.Similarity = sim
	}
	if m := os.Getenv("VAMANA_M"); m != "" {
		if mv, err := strconv.Atoi(m); err == nil {
			cfg.Index.M = mv
		}
	}
	if ef := os.Getenv("VAMANA_EF_CONSTRUCTION"); ef != "" {
		if ev, err := strconv.Atoi(ef); err == nil {
			cfg.Index.EfConstruction = ev
		}
	}
	if alpha := os.Getenv("VAMANA_ALPHA"); alpha != "" {
		if a, err := strconv.ParseFloat(alpha, 64); err == nil {
			cfg.Index.Alpha = a
		}
	}

	if enabled := os.Getenv("VAMANA_PQ_ENABLED"); enabled == "true" {
		cfg.PQ.Enabled = true
	}
	if sub := os.Getenv("VAMANA_PQ_SUBVECTORS"); sub != "" {
		if s, err := strconv.Atoi(sub); err == nil {
			cfg.PQ.NumSubvectors = s
		}
	}
	if centered := os.Getenv("VAMANA_PQ_CENTERED"); centered == "true" {
		cfg.PQ.Centered = true
	}
	if rerank := os.Getenv("VAMANA_PQ_RERANK_FACTOR"); rerank != "" {
		if r, err := strconv.Atoi(rerank); err == nil {
			cfg.PQ.RerankFactor = r
		}
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("invalid rate limit: %f (must be > 0)", c.Server.RateLimitRPS)
	}

	if c.Index.Dimension < 1 {
		return fmt.Errorf("invalid dimension: %d (must be > 0)", c.Index.Dimension)
	}
	if c.Index.M < 2 {
		return fmt.Errorf("invalid M: %d (must be >= 2)", c.Index.M)
	}
	if c.Index.EfConstruction < c.Index.M {
		return fmt.Errorf("invalid efConstruction: %d (must be >= M=%d)", c.Index.EfConstruction, c.Index.M)
	}
	if c.Index.Alpha < 1.0 {
		return fmt.Errorf("invalid alpha: %f (must be >= 1.0)", c.Index.Alpha)
	}

	if c.PQ.Enabled && c.PQ.NumSubvectors < 1 {
		return fmt.Errorf("invalid PQ subvector count: %d (must be > 0)", c.PQ.NumSubvectors)
	}

	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
