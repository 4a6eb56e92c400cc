package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer         string // Required: issuer claim for tokens
	ClientIDDomain string // Optional: domain suffix for minted client ids (default: intermine.com)

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./authserver.db)
	PepperFile          string        // Optional: path to file containing pepper for secret hashing (default: ./pepper)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	// Optional bootstrap account, seeded only when the user table is empty.
	BootstrapUsername string
	BootstrapPassword string
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:              os.Getenv("AUTH_ISSUER"),
		ClientIDDomain:      getEnvOrDefault("AUTH_CLIENT_ID_DOMAIN", "intermine.com"),
		DatabaseFile:        getEnvOrDefault("AUTH_DATABASE_FILE", "authserver.db"),
		PepperFile:          getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		BootstrapUsername:   os.Getenv("BOOTSTRAP_USERNAME"),
		BootstrapPassword:   os.Getenv("BOOTSTRAP_PASSWORD"),
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "https://auth.intermine.org"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
