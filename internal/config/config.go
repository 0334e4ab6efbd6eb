package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreLevelDB  = "leveldb"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	StoreDriver         string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	LevelDBPath         string        `mapstructure:"LEVELDB_PATH"`
	DefaultOffice       string        `mapstructure:"DEFAULT_OFFICE"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL         string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	PVerifyBaseURL      string        `mapstructure:"PVERIFY_BASE_URL"`
	PVerifyClientID     string        `mapstructure:"PVERIFY_CLIENT_ID"`
	PVerifyClientSecret string        `mapstructure:"PVERIFY_CLIENT_SECRET"`
	PVerifyTimeout      time.Duration `mapstructure:"PVERIFY_TIMEOUT"`
}

var envKeys = []string{
	"PORT", "ENV", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"LEVELDB_PATH", "DEFAULT_OFFICE", "CORS_ORIGINS",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"PVERIFY_BASE_URL", "PVERIFY_CLIENT_ID", "PVERIFY_CLIENT_SECRET", "PVERIFY_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", StorePostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("LEVELDB_PATH", "data/eligibility")
	v.SetDefault("DEFAULT_OFFICE", "office_00")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("PVERIFY_BASE_URL", "https://api.pverify.com")
	v.SetDefault("PVERIFY_TIMEOUT", "30s")

	// Unmarshal only sees env vars that are bound.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	switch cfg.StoreDriver {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", StorePostgres)
		}
	case StoreLevelDB:
		if cfg.LevelDBPath == "" {
			return nil, fmt.Errorf("LEVELDB_PATH is required for STORE_DRIVER=%s", StoreLevelDB)
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StorePostgres, StoreLevelDB, cfg.StoreDriver)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AuthEnabled reports whether requests must carry a bearer token. Development
// runs without auth unless a key or JWKS URL is configured.
func (c *Config) AuthEnabled() bool {
	return !c.IsDev() || c.AuthSigningKey != "" || c.AuthJWKSURL != ""
}

// Validate checks that the configuration is safe to run. Outside development
// a token verification source is required, and the upstream credentials must
// be set together.
func (c *Config) Validate() error {
	if c.AuthEnabled() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when ENV=%q; "+
				"refusing to start without authentication", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters, got %d", len(c.AuthSigningKey))
	}
	if (c.PVerifyClientID == "") != (c.PVerifyClientSecret == "") {
		return fmt.Errorf("PVERIFY_CLIENT_ID and PVERIFY_CLIENT_SECRET must be set together")
	}
	if c.IsProduction() && c.PVerifyClientID == "" {
		return fmt.Errorf("PVERIFY_CLIENT_ID is required in production")
	}
	if c.PVerifyTimeout <= 0 {
		return fmt.Errorf("PVERIFY_TIMEOUT must be positive, got %s", c.PVerifyTimeout)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	return nil
}

// UpstreamConfigured reports whether eligibility checks can reach the payer API.
func (c *Config) UpstreamConfigured() bool {
	return c.PVerifyClientID != "" && c.PVerifyClientSecret != ""
}
