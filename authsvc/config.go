package authsvc

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv      string        `env:"APP_ENV"`
	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8081"`
	ConsulAddr  string        `env:"CONSUL_ADDR"`
	DatabaseURL string        `env:"DATABASE_URL"`
	TokenSecret string        `env:"TOKEN_SECRET" envDefault:"access-secret"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"10h"`
}

// LoadConfig reads the service configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("parse env: TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}
