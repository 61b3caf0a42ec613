package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	// Transfer retry policy. Attempts counts the first try.
	TransferMaxAttempts  int
	TransferRetryBackoff time.Duration
}

func Load() (*Config, error) {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	maxAttempts := 3
	if v := os.Getenv("TRANSFER_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("TRANSFER_MAX_ATTEMPTS must be a positive integer, got %q", v)
		}
		maxAttempts = n
	}

	backoff := 10 * time.Millisecond
	if v := os.Getenv("TRANSFER_RETRY_BACKOFF_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("TRANSFER_RETRY_BACKOFF_MS must be a non-negative integer, got %q", v)
		}
		backoff = time.Duration(n) * time.Millisecond
	}

	return &Config{
		DBSource:             dbSource,
		Port:                 port,
		Env:                  env,
		TransferMaxAttempts:  maxAttempts,
		TransferRetryBackoff: backoff,
	}, nil
}
