package config

import (
	"testing"
	"time"
)

func setDirectEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_MODE", "direct")
	t.Setenv("MTN_BASE_URL", "https://sandbox.momodeveloper.mtn.com")
	t.Setenv("MTN_API_USER", "user")
	t.Setenv("MTN_API_KEY", "key")
	t.Setenv("MTN_COLLECTION_KEY", "col")
	t.Setenv("MTN_DISBURSEMENT_KEY", "dis")
	t.Setenv("ORANGE_BASE_URL", "https://api-s1.orange.cm")
	t.Setenv("ORANGE_CONSUMER_KEY", "ck")
	t.Setenv("ORANGE_CONSUMER_SECRET", "cs")
	t.Setenv("ORANGE_API_USERNAME", "au")
	t.Setenv("ORANGE_API_PASSWORD", "ap")
	t.Setenv("ORANGE_MERCHANT_MSISDN", "690000000")
	t.Setenv("ORANGE_MERCHANT_PIN", "1234")
}

func TestLoadDirectMode(t *testing.T) {
	setDirectEnv(t)
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("PROVIDER_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode() != ModeDirect {
		t.Fatalf("mode = %q", cfg.Mode())
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Fatalf("provider timeout = %v", cfg.ProviderTimeout)
	}
	if !cfg.Sandbox() {
		t.Fatal("default environment must be sandbox")
	}
}

func TestLoadDirectModeMissingOrangeCredentials(t *testing.T) {
	setDirectEnv(t)
	t.Setenv("ORANGE_CONSUMER_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing Orange credentials")
	}
}

func TestLoadAggregatorMode(t *testing.T) {
	t.Setenv("GATEWAY_MODE", "aggregator")
	t.Setenv("PAWAPAY_BASE_URL", "https://api.sandbox.pawapay.io")
	t.Setenv("PAWAPAY_CLIENT_ID", "id")
	t.Setenv("PAWAPAY_CLIENT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode() != ModeAggregator {
		t.Fatalf("mode = %q", cfg.Mode())
	}
	if cfg.Pawapay.WireVersion != 2 {
		t.Fatalf("default wire version = %d", cfg.Pawapay.WireVersion)
	}
}

func TestLoadAggregatorModeMissingCredentials(t *testing.T) {
	t.Setenv("GATEWAY_MODE", "aggregator")
	t.Setenv("PAWAPAY_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing aggregator credentials")
	}
}

func TestLoadUnknownMode(t *testing.T) {
	t.Setenv("GATEWAY_MODE", "hybrid")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSandbox(t *testing.T) {
	cfg := &Config{Environment: "production"}
	if cfg.Sandbox() {
		t.Fatal("production must not be sandbox")
	}
	cfg.Environment = "Sandbox"
	if !cfg.Sandbox() {
		t.Fatal("sandbox detection is case-insensitive")
	}
}
