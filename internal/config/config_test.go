package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Payout.AllowSimulated {
		t.Error("simulated payout must be disabled by default")
	}
	if cfg.Risk.ClearMax != 10 || cfg.Risk.LowMax != 40 || cfg.Risk.MediumMax != 70 {
		t.Errorf("risk defaults: %+v", cfg.Risk)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 200*time.Millisecond {
		t.Errorf("retry defaults: %+v", cfg.Retry)
	}
	if cfg.Screening.Timeout != 10*time.Second {
		t.Errorf("screening timeout: %s", cfg.Screening.Timeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PAYOUT_ALLOW_SIMULATED", "true")
	t.Setenv("RISK_CLEAR_MAX", "5")
	t.Setenv("RETRY_BASE_DELAY", "1s")
	t.Setenv("SCREENING_BASE_URL", "https://screening.example.com/")
	t.Setenv("OPERATOR_TOKEN", "tok-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Payout.AllowSimulated {
		t.Error("PAYOUT_ALLOW_SIMULATED not honored")
	}
	if cfg.Risk.ClearMax != 5 {
		t.Errorf("clear max: %d", cfg.Risk.ClearMax)
	}
	if cfg.Retry.BaseDelay != time.Second {
		t.Errorf("base delay: %s", cfg.Retry.BaseDelay)
	}
	if cfg.Screening.BaseURL != "https://screening.example.com/" {
		t.Errorf("screening base url: %s", cfg.Screening.BaseURL)
	}
	if cfg.OperatorToken != "tok-123" {
		t.Errorf("operator token: %s", cfg.OperatorToken)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("RISK_CLEAR_MAX", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed RISK_CLEAR_MAX")
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("PAYOUT_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed PAYOUT_TIMEOUT")
	}
}

func TestLoadRejectsMalformedBool(t *testing.T) {
	t.Setenv("PAYOUT_ALLOW_SIMULATED", "yep")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed PAYOUT_ALLOW_SIMULATED")
	}
}
