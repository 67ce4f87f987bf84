// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// KeyPath is the directory searched for credential key files.
	KeyPath string

	// DatabasePath locates the tweet history database.
	DatabasePath string

	// TemplateDir optionally overrides the bundled tweet template.
	TemplateDir string

	// APIVersion selects the posting API, "v1" or "v2".
	APIVersion string

	// MQTT settings for watch mode.
	MQTTBroker string
	MQTTTopic  string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		KeyPath:      getEnv("TWITTER_KEY_PATH", "."),
		DatabasePath: getEnv("DATABASE_PATH", "data/cheertweet.db"),
		TemplateDir:  getEnv("TEMPLATE_DIR", ""),
		APIVersion:   getEnv("TWITTER_API_VERSION", "v1"),
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://mqtt.cheerlights.com:1883"),
		MQTTTopic:    getEnv("MQTT_TOPIC", "cheerlights"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	if cfg.APIVersion != "v1" && cfg.APIVersion != "v2" {
		return nil, fmt.Errorf("invalid TWITTER_API_VERSION: %s (must be 'v1' or 'v2')", cfg.APIVersion)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.KeyPath == "" {
		return fmt.Errorf("TWITTER_KEY_PATH is required")
	}
	return nil
}

// ValidateForHistory checks configuration needed for the history log.
func (c *Config) ValidateForHistory() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// ValidateForWatch checks configuration needed for watch mode.
func (c *Config) ValidateForWatch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for watch mode")
	}
	if c.MQTTTopic == "" {
		return fmt.Errorf("MQTT_TOPIC is required for watch mode")
	}
	if !strings.Contains(c.MQTTBroker, "://") {
		return fmt.Errorf("MQTT_BROKER must include a scheme, e.g. tcp://host:1883, got %s", c.MQTTBroker)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
