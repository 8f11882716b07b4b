package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("POST_BATCH_SIZE", "")
	t.Setenv("RETRY_DELAY_MINUTES", "")
	t.Setenv("LINKEDIN_WEBHOOK_SECRET", "")

	cfg := LoadConfig()
	if cfg.Publisher.PostBatchSize != 10 || cfg.Publisher.RetryBatchSize != 5 || cfg.Publisher.RetryMaxAttempts != 3 {
		t.Errorf("publisher = %+v", cfg.Publisher)
	}
	if cfg.Publisher.RetryDelay != 5*time.Minute {
		t.Errorf("retry delay = %v", cfg.Publisher.RetryDelay)
	}
	if cfg.LinkedInVerificationEnabled() {
		t.Error("verification enabled without a secret")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("POST_BATCH_SIZE", "25")
	t.Setenv("RETRY_DELAY_MINUTES", "not-a-number")
	t.Setenv("LINKEDIN_WEBHOOK_SECRET", "s3cret")
	t.Setenv("R2_PUBLIC_URL", "https://cdn.example.com/")

	cfg := LoadConfig()
	if cfg.Publisher.PostBatchSize != 25 {
		t.Errorf("batch size = %d", cfg.Publisher.PostBatchSize)
	}
	if cfg.Publisher.RetryDelay != 5*time.Minute {
		t.Errorf("invalid value should fall back, got %v", cfg.Publisher.RetryDelay)
	}
	if !cfg.LinkedInVerificationEnabled() {
		t.Error("verification disabled with a secret")
	}
	if cfg.R2.PublicURL != "https://cdn.example.com" {
		t.Errorf("public url = %q", cfg.R2.PublicURL)
	}
}

func TestTokenKey(t *testing.T) {
	a := (&Config{SecretKey: "one"}).TokenKey()
	b := (&Config{SecretKey: "two"}).TokenKey()
	if len(a) != 32 {
		t.Fatalf("key length = %d, want 32", len(a))
	}
	if string(a) == string(b) {
		t.Error("different secrets produced the same key")
	}
}
