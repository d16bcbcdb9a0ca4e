// Package config loads the bot configuration from the environment.
// Missing required values fail startup; optional values fall back to
// documented defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Telegram.
	TelegramBotToken string // required

	// AI provider.
	GrokAPIKey      string // required
	GrokAPIURL      string
	GrokModel       string
	GrokTemperature float32

	// Persisted state (reply cache + gate records).
	StoreBackend string // "memory" or "redis"
	RedisAddr    string

	// Response cache.
	CacheTTL time.Duration

	// Token gate.
	TokenGateEnabled bool
	SolanaRPCURL     string
	GateTokenMint    string // required when TokenGateEnabled
	GateMinBalance   float64
	NonceTTL         time.Duration

	// Dispatcher.
	Persona           string
	RateLimitCommands int // commands per minute per user

	// Image backend; empty URL disables the image path.
	ImageAPIURL   string
	ImageAPIToken string
}

// Load reads the environment. It returns an error naming the first
// missing required variable; a malformed optional value is also an
// error rather than a silent fallback, so a typo'd TTL cannot run the
// bot with a default nobody asked for.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		Port:             getenv("PORT", "8080"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		GrokAPIKey:      os.Getenv("GROK_API_KEY"),
		GrokAPIURL:      getenv("GROK_API_URL", "https://api.x.ai"),
		GrokModel:       getenv("GROK_MODEL", "grok-beta"),
		GrokTemperature: float32(getfloat("GROK_TEMPERATURE", 0.7, &errs)),

		StoreBackend: getenv("STORE_BACKEND", "memory"),
		RedisAddr:    getenv("REDIS_ADDR", "127.0.0.1:6379"),

		CacheTTL: getduration("CACHE_TTL", 60*time.Second, &errs),

		TokenGateEnabled: getbool("TOKEN_GATE_ENABLED", false, &errs),
		SolanaRPCURL:     getenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		GateTokenMint:    os.Getenv("GATE_TOKEN_MINT"),
		GateMinBalance:   getfloat("GATE_MIN_BALANCE", 1, &errs),
		NonceTTL:         getduration("NONCE_TTL", 5*time.Minute, &errs),

		Persona:           getenv("BOT_PERSONA", "Chibi"),
		RateLimitCommands: getint("RATE_LIMIT_COMMANDS", 5, &errs),

		ImageAPIURL:   os.Getenv("IMAGE_API_URL"),
		ImageAPIToken: os.Getenv("IMAGE_API_TOKEN"),
	}

	if len(errs) > 0 {
		return Config{}, errs[0]
	}

	if cfg.TelegramBotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.GrokAPIKey == "" {
		return Config{}, fmt.Errorf("GROK_API_KEY is required")
	}
	if cfg.StoreBackend != "memory" && cfg.StoreBackend != "redis" {
		return Config{}, fmt.Errorf("STORE_BACKEND must be \"memory\" or \"redis\", got %q", cfg.StoreBackend)
	}
	if cfg.TokenGateEnabled && cfg.GateTokenMint == "" {
		return Config{}, fmt.Errorf("GATE_TOKEN_MINT is required when TOKEN_GATE_ENABLED is set")
	}

	return cfg, nil
}

// getenv returns the value of the environment variable key or def if not
// set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// The typed getters return the default when the variable is unset, and
// record an error when it is set but unparseable.

func getduration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func getint(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func getfloat(key string, def float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, v))
		return def
	}
	return f
}

func getbool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}
