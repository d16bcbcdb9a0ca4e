package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GROK_API_KEY", "xai-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("unexpected port: %s", cfg.Port)
	}
	if cfg.GrokAPIURL != "https://api.x.ai" {
		t.Errorf("unexpected grok url: %s", cfg.GrokAPIURL)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("unexpected backend: %s", cfg.StoreBackend)
	}
	if cfg.CacheTTL != 60*time.Second {
		t.Errorf("unexpected cache ttl: %s", cfg.CacheTTL)
	}
	if cfg.NonceTTL != 5*time.Minute {
		t.Errorf("unexpected nonce ttl: %s", cfg.NonceTTL)
	}
	if cfg.TokenGateEnabled {
		t.Errorf("gate should default to disabled")
	}
	if cfg.Persona != "Chibi" {
		t.Errorf("unexpected persona: %s", cfg.Persona)
	}
	if cfg.RateLimitCommands != 5 {
		t.Errorf("unexpected rate limit: %d", cfg.RateLimitCommands)
	}
}

func TestLoadMissingBotToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("GROK_API_KEY", "xai-key")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Fatalf("expected missing bot token error, got %v", err)
	}
}

func TestLoadMissingGrokKey(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GROK_API_KEY", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "GROK_API_KEY") {
		t.Fatalf("expected missing grok key error, got %v", err)
	}
}

func TestLoadGateRequiresMint(t *testing.T) {
	setRequired(t)
	t.Setenv("TOKEN_GATE_ENABLED", "true")
	t.Setenv("GATE_TOKEN_MINT", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "GATE_TOKEN_MINT") {
		t.Fatalf("expected missing mint error, got %v", err)
	}

	t.Setenv("GATE_TOKEN_MINT", "So11111111111111111111111111111111111111112")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with mint: %v", err)
	}
	if !cfg.TokenGateEnabled {
		t.Fatalf("gate should be enabled")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "mongodb")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"CACHE_TTL", "60sec"},
		{"NONCE_TTL", "five minutes"},
		{"RATE_LIMIT_COMMANDS", "lots"},
		{"GROK_TEMPERATURE", "0,7"},
		{"TOKEN_GATE_ENABLED", "yes please"},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.key) {
				t.Fatalf("expected error naming %s, got %v", tc.key, err)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("RATE_LIMIT_COMMANDS", "10")
	t.Setenv("BOT_PERSONA", "Bitty")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("cache ttl override ignored: %s", cfg.CacheTTL)
	}
	if cfg.RateLimitCommands != 10 {
		t.Errorf("rate limit override ignored: %d", cfg.RateLimitCommands)
	}
	if cfg.Persona != "Bitty" {
		t.Errorf("persona override ignored: %s", cfg.Persona)
	}
}
