package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL     string        `env:"DB_URL,required"`
	JWTSecret string        `env:"JWT_SECRET,required"`
	Addr      string        `env:"ADDR" envDefault:":8080"`
	BaseURL   string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

// Load reads required values from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
