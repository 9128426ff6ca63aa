package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/database"
	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/utilities"
)

// HTTP holds listener and middleware settings (HTTP_*).
type HTTP struct {
	Addr           string        `envconfig:"ADDR" default:"0.0.0.0:8431"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	// LoginRate is the per-IP request budget per minute on /auth routes.
	LoginRate int `envconfig:"LOGIN_RATE" default:"20"`
}

// JWT holds token signing settings (JWT_*).
type JWT struct {
	Secret string `envconfig:"SECRET"`
	Issuer string `envconfig:"ISSUER"`
}

// Config holds runtime configuration for the service.
type Config struct {
	HTTP          HTTP             `envconfig:"HTTP"`
	Database      database.Config  `envconfig:"DATABASE"`
	Log           utilities.Config `envconfig:"LOG"`
	JWT           JWT              `envconfig:"JWT"`
	BcryptCost    int              `envconfig:"BCRYPT_COST" default:"10"`
	SnowflakeNode int64            `envconfig:"SNOWFLAKE_NODE" default:"1"`
}

// Load reads .env (best-effort) and then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine: real env or defaults apply
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the auth layer cannot run with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.JWT.Issuer == "" {
		return errors.New("JWT_ISSUER must be provided")
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return errors.New("SNOWFLAKE_NODE must be between 0 and 1023")
	}
	return nil
}
