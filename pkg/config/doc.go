// Package config loads application configuration from environment variables
// into tagged structs using github.com/caarlos0/env, with optional .env file
// support via github.com/joho/godotenv.
//
// Each package that needs configuration declares its own Config struct with
// `env` tags and sensible envDefault values; the composition root calls
// config.MustLoad for everything it cannot start without.
package config
