package apmtrace

import "testing"

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvServiceName, "checkout-service")
	t.Setenv(EnvServiceVersion, "1.4.2")
	t.Setenv(EnvSecretToken, "s3cret")
	t.Setenv(EnvServerURL, "https://apm.example.com:8200")
	t.Setenv(EnvStackTraceLimit, "25")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.ServiceName != "checkout-service" {
		t.Errorf("Expected service name 'checkout-service', got %s", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "1.4.2" {
		t.Errorf("Expected version '1.4.2', got %s", cfg.ServiceVersion)
	}
	if cfg.SecretToken != "s3cret" {
		t.Errorf("Expected token 's3cret', got %s", cfg.SecretToken)
	}
	if cfg.ServerURL != "https://apm.example.com:8200" {
		t.Errorf("Expected server URL to be read, got %s", cfg.ServerURL)
	}
	if cfg.StackTraceLimit != 25 {
		t.Errorf("Expected stack trace limit 25, got %d", cfg.StackTraceLimit)
	}
}

func TestConfigFromEnvMissingServiceName(t *testing.T) {
	t.Setenv(EnvServiceName, "")

	if _, err := ConfigFromEnv(); err == nil {
		t.Error("Expected error for empty service name")
	}
}

func TestConfigFromEnvBadStackTraceLimit(t *testing.T) {
	t.Setenv(EnvServiceName, "checkout-service")
	t.Setenv(EnvStackTraceLimit, "not-a-number")

	if _, err := ConfigFromEnv(); err == nil {
		t.Error("Expected error for unparseable stack trace limit")
	}
}

func TestConfigStackTraceLimitDefault(t *testing.T) {
	cfg := Config{ServiceName: "checkout-service"}

	if cfg.stackTraceLimit() != DefaultStackTraceLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultStackTraceLimit, cfg.stackTraceLimit())
	}

	cfg.StackTraceLimit = -5
	if cfg.stackTraceLimit() != DefaultStackTraceLimit {
		t.Errorf("Expected negative limit to fall back to default, got %d", cfg.stackTraceLimit())
	}

	cfg.StackTraceLimit = 3
	if cfg.stackTraceLimit() != 3 {
		t.Errorf("Expected explicit limit 3, got %d", cfg.stackTraceLimit())
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Error("Expected validation error for empty config")
	}

	if err := (Config{ServiceName: "svc"}).Validate(); err != nil {
		t.Errorf("Unexpected validation error: %v", err)
	}
}
