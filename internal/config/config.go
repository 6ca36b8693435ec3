package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    string        `mapstructure:"PORT"`
	Env                     string        `mapstructure:"ENV"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	JWTSecret               string        `mapstructure:"JWT_SECRET"`
	JWTIssuer               string        `mapstructure:"JWT_ISSUER"`
	TokenTTL                time.Duration `mapstructure:"TOKEN_TTL"`
	BcryptCost              int           `mapstructure:"BCRYPT_COST"`
	DevUser                 string        `mapstructure:"DEV_USER"`
	CORSOrigins             []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS            float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst          int           `mapstructure:"RATE_LIMIT_BURST"`
	HSTSEnabled             bool          `mapstructure:"HSTS_ENABLED"`
	KafkaBrokers            string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic              string        `mapstructure:"KAFKA_TOPIC"`
	SeedFile                string        `mapstructure:"SEED_FILE"`
	SeedDemo                bool          `mapstructure:"SEED_DEMO"`
	PharmacistSelectionSeed uint64        `mapstructure:"PHARMACIST_SELECTION_SEED"`
	ShutdownTimeout         time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// devSecret signs tokens in development when JWT_SECRET is unset.
const devSecret = "clinic-development-secret-do-not-use-in-prod"

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "JWT_SECRET", "JWT_ISSUER", "TOKEN_TTL", "BCRYPT_COST",
	"DEV_USER", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "HSTS_ENABLED",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "SEED_FILE", "SEED_DEMO", "PHARMACIST_SELECTION_SEED",
	"SHUTDOWN_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_ISSUER", "clinic")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("DEV_USER", "admin")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("HSTS_ENABLED", false)
	v.SetDefault("KAFKA_TOPIC", "clinic.events")
	v.SetDefault("SEED_DEMO", true)
	v.SetDefault("PHARMACIST_SELECTION_SEED", 0)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = devSecret
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Brokers splits KAFKA_BROKERS. An empty result disables event streaming.
func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// Validate checks that the configuration is safe to run. Outside development
// the token signing secret must be at least 32 bytes.
func (c *Config) Validate() error {
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes when ENV=%q", c.Env)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}
	if c.Brokers() != nil && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
