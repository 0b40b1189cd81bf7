// Package config loads server settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string        `env:"CHAT_ADDR,default=:8008" validate:"required"`
	MetricsAddr  string        `env:"CHAT_METRICS_ADDR,default=:9090"`
	PeerLogPath  string        `env:"CHAT_PEER_LOG_PATH,default=./peerlog"`
	WriteTimeout time.Duration `env:"CHAT_WRITE_TIMEOUT,default=10s" validate:"min=1ms"`
	ShutdownWait time.Duration `env:"CHAT_SHUTDOWN_WAIT,default=5s" validate:"min=1ms"`
	LogLevel     string        `env:"CHAT_LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
}

// Load reads the environment into a Config and validates it. A missing
// .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
