package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("expected default TTL 24h, got %s", cfg.TokenTTL)
	}
	if cfg.KafkaTopic != "clinic.events" {
		t.Errorf("expected default topic, got %s", cfg.KafkaTopic)
	}
	if !cfg.SeedDemo {
		t.Error("expected demo seeding on by default")
	}
	if cfg.JWTSecret == "" {
		t.Error("expected a development secret")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("TOKEN_TTL", "90m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("unexpected origins %v", cfg.CORSOrigins)
	}
	if b := cfg.Brokers(); len(b) != 2 || b[0] != "k1:9092" {
		t.Errorf("unexpected brokers %v", b)
	}
	if cfg.RateLimitRPS != 2.5 || cfg.TokenTTL != 90*time.Minute {
		t.Errorf("unexpected limits %v / %s", cfg.RateLimitRPS, cfg.TokenTTL)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Env:            "production",
		JWTSecret:      strings.Repeat("k", 32),
		TokenTTL:       time.Hour,
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }},
		{"zero rps", func(c *Config) { c.RateLimitRPS = 0 }},
		{"negative burst", func(c *Config) { c.RateLimitBurst = -1 }},
		{"brokers without topic", func(c *Config) { c.KafkaBrokers = "k:9092"; c.KafkaTopic = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
