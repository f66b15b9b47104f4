package vamana

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig(128, Cosine)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate, got %v", err)
	}
}

func TestConfigValidateRejectsBadFields(t *testing.T) {
	base := DefaultConfig(128, Euclidean)

	cases := []struct {
		name string
		mut  func(c *Config)
	}{
		{"zero dimension", func(c *Config) { c.Dimension = 0 }},
		{"negative dimension", func(c *Config) { c.Dimension = -1 }},
		{"m too small", func(c *Config) { c.M = 1 }},
		{"ef below m", func(c *Config) { c.EfConstruction = c.M - 1 }},
		{"alpha below 1", func(c *Config) { c.Alpha = 0.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}
