package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Spotlight binaries.
type Config struct {
	DBPath        string
	ServerPort    int
	LogLevel      string
	LLMEndpoint   string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeout    time.Duration
	SentryDSN     string
	Environment   string
	ShutdownGrace time.Duration
	RateLimit     RateLimitConfig
}

// RateLimitConfig configures the per-client token bucket in front of the HTTP API.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultDBPath        = "./data/spotlight.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultLLMModel      = "openai/gpt-4o-mini"
	defaultLLMTimeout    = 2 * time.Minute
	defaultEnvironment   = "development"
	defaultShutdownGrace = 10 * time.Second
	defaultRateLimitRPS  = 1.0
	defaultRateBurst     = 5
	defaultRateClientTTL = 10 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:      getEnv("DB_PATH", defaultDBPath),
		LogLevel:    getEnv("LOG_LEVEL", defaultLogLevel),
		LLMEndpoint: strings.TrimSpace(os.Getenv("LLM_ENDPOINT")),
		LLMAPIKey:   strings.TrimSpace(os.Getenv("LLM_API_KEY")),
		LLMModel:    getEnv("LLM_MODEL", defaultLLMModel),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: getEnv("ENV", defaultEnvironment),
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	if port <= 0 || port > 65535 {
		return nil, eris.Errorf("invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", defaultLLMTimeout); err != nil {
		return nil, err
	}

	if cfg.ShutdownGrace, err = getDuration("SHUTDOWN_GRACE", defaultShutdownGrace); err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimit()
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = rateLimit

	return cfg, nil
}

func loadRateLimit() (RateLimitConfig, error) {
	settings := RateLimitConfig{
		RequestsPerSecond: defaultRateLimitRPS,
		Burst:             defaultRateBurst,
	}

	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			return RateLimitConfig{}, eris.Errorf("invalid RATE_LIMIT_RPS value: %s", raw)
		}
		settings.RequestsPerSecond = rps
	}

	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil || burst <= 0 {
			return RateLimitConfig{}, eris.Errorf("invalid RATE_LIMIT_BURST value: %s", raw)
		}
		settings.Burst = burst
	}

	ttl, err := getDuration("RATE_LIMIT_TTL", defaultRateClientTTL)
	if err != nil {
		return RateLimitConfig{}, err
	}
	settings.ClientTTL = ttl

	return settings, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	if value <= 0 {
		return 0, eris.Errorf("invalid %s value: %s", key, raw)
	}

	return value, nil
}
