package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP Server
	Port string

	// Ledger backend
	DataBackend  string
	SQLiteDBPath string

	// Classifier
	ClassifierBackend string
	ClassifierURL     string
	PatternsPath      string

	// High-value expense alert threshold, in cents.
	AlertThresholdCents int64

	// AMQP (archive events; optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledgerchat.db"),

		ClassifierBackend: getEnv("CLASSIFIER_BACKEND", "rules"),
		ClassifierURL:     getEnv("CLASSIFIER_URL", "http://localhost:5000"),
		PatternsPath:      getEnv("PATTERNS_PATH", ""),

		AlertThresholdCents: getEnvInt64("ALERT_THRESHOLD_CENTS", 500000),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledgerchat"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "archive_entries"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate classifier backend
	validClassifiers := []string{"rules", "http"}
	isValidClassifier := false
	for _, backend := range validClassifiers {
		if c.ClassifierBackend == backend {
			isValidClassifier = true
			break
		}
	}
	if !isValidClassifier {
		errors = append(errors, fmt.Sprintf("invalid classifier backend '%s': must be one of %v", c.ClassifierBackend, validClassifiers))
	}

	if c.ClassifierBackend == "http" {
		if c.ClassifierURL == "" {
			errors = append(errors, "classifier URL cannot be empty when using http classifier backend")
		} else if parsedURL, err := url.Parse(c.ClassifierURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid classifier URL '%s': %v", c.ClassifierURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid classifier URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.AlertThresholdCents < 0 {
		errors = append(errors, fmt.Sprintf("invalid alert threshold %d: must not be negative", c.AlertThresholdCents))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
