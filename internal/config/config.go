package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration for the service
type Config struct {
	Env       string
	Port      string
	DBPath    string
	JWTSecret string
	Debug     bool
}

// Load reads configuration from environment variables, falling back to
// defaults suitable for local development. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// .env is optional; plain environment variables still apply
		log.Debug().Msg("no .env file found, using environment variables")
	}

	return &Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "vendor.db"),
		JWTSecret: getEnv("JWT_SECRET", "vendor-secret-key"),
		Debug:     os.Getenv("DEBUG") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
