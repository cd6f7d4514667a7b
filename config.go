package apmtrace

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names read by ConfigFromEnv.
const (
	EnvServiceName     = "APMTRACE_SERVICE_NAME"
	EnvServiceVersion  = "APMTRACE_SERVICE_VERSION"
	EnvSecretToken     = "APMTRACE_SECRET_TOKEN"
	EnvServerURL       = "APMTRACE_SERVER_URL"
	EnvStackTraceLimit = "APMTRACE_STACK_TRACE_LIMIT"
)

// Config carries the externally-owned settings a session and its sink need.
// Values are opaque to the tracker; it never parses them beyond the
// non-emptiness check on ServiceName.
type Config struct {
	// ServiceName identifies the instrumented application. Required.
	ServiceName string
	// ServiceVersion is the deployed version of the application.
	ServiceVersion string
	// SecretToken authenticates against the collector backend. Consumed by
	// Sink implementations, never by the session.
	SecretToken string
	// ServerURL is the destination endpoint for flushed records. Consumed
	// by Sink implementations, never by the session.
	ServerURL string
	// StackTraceLimit caps captured call-stack depth per span and error
	// record. Zero or negative means DefaultStackTraceLimit.
	StackTraceLimit int
}

// ConfigFromEnv builds a Config from APMTRACE_* environment variables.
// A .env file in the working directory is loaded first when present.
func ConfigFromEnv() (Config, error) {
	// Best effort - a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := Config{
		ServiceName:    os.Getenv(EnvServiceName),
		ServiceVersion: os.Getenv(EnvServiceVersion),
		SecretToken:    os.Getenv(EnvSecretToken),
		ServerURL:      os.Getenv(EnvServerURL),
	}

	if raw := os.Getenv(EnvStackTraceLimit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", EnvStackTraceLimit, err)
		}
		cfg.StackTraceLimit = limit
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config for the settings the tracker itself requires.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("config: service name must not be empty")
	}
	return nil
}

func (c Config) stackTraceLimit() int {
	if c.StackTraceLimit <= 0 {
		return DefaultStackTraceLimit
	}
	return c.StackTraceLimit
}
