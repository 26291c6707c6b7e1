// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the process needs to start. Parsed once in main
// and passed down; nothing reads the environment after startup.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath      string `env:"DB_PATH" envDefault:"data/accounts.db"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	ClientURL   string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`

	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKey     string `env:"S3_ACCESS_KEY,required"`
	S3SecretKey     string `env:"S3_SECRET_KEY,required"`
	S3Bucket        string `env:"S3_BUCKET" envDefault:"avatars"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL,required"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether the process runs in the development
// environment, which relaxes the cookie Secure flag.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}
