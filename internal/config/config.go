// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the server.
type Config struct {
	Port            string
	DBPath          string
	TemplateDir     string
	StaticDir       string
	SecureCookie    bool
	SessionDuration time.Duration
	SweepInterval   time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "expenses.db"),
		TemplateDir:     getEnv("TEMPLATE_DIR", "web/templates"),
		StaticDir:       getEnv("STATIC_DIR", "web/static"),
		SecureCookie:    getEnvBool("SECURE_COOKIE", false),
		SessionDuration: getEnvDuration("SESSION_DURATION", 30*24*time.Hour),
		SweepInterval:   getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),
	}
}

// Validate returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: must be a number", c.Port)
	} else if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.SessionDuration < time.Minute {
		return fmt.Errorf("invalid session duration %v: must be at least 1 minute", c.SessionDuration)
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("invalid session sweep interval %v: must be at least 1 second", c.SweepInterval)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
