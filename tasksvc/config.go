package tasksvc

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8082"`
	GRPCAddr     string        `env:"GRPC_ADDR" envDefault:":8083"`
	ConsulAddr   string        `env:"CONSUL_ADDR"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	AuthAddr     string        `env:"AUTH_ADDR"`
	RetryMax     int           `env:"RETRY_MAX" envDefault:"3"`
	RetryTimeout time.Duration `env:"RETRY_TIMEOUT" envDefault:"500ms"`
}

// LoadConfig reads the service configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
