package httpapi

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the HTTP server settings, read from the environment.
type Config struct {
	Addr            string        `env:"SIM_HTTP_ADDR" envDefault:":12790"`
	ReadTimeout     time.Duration `env:"SIM_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SIM_HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SIM_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig parses the server configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse http config: %w", err)
	}
	return cfg, nil
}
