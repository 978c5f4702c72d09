// Package config loads application configuration from environment variables
// and optional .env files.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: every
// component of the subsystem declares its own struct with `env` tags (see
// pg.Config, mailer.Config, registry.Config) and populates it with Load or
// MustLoad during startup.
package config
