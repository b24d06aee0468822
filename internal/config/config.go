package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL   string
	JWTSecret     string
	Port          string
	TokenTTL      time.Duration
	RateLimitTurn RateLimitConfig

	RedisURL      string
	RedisPassword string
	SessionTTL    time.Duration
	MaxSessions   int

	DatasetPath  string
	LexiconPath  string
	PrefsSecret  string
	PrefsDir     string
	PrefsBackend string

	ReservationBaseURL string
	PhoneRegion        string
	DialogTopK         int
	AllowedOrigins     []string

	TelegramBotToken string
	LogLevel         string
	LogFormat        string
}

// Load reads configuration from environment variables and applies sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret"),
		Port:               getEnv("PORT", "8080"),
		TokenTTL:           parseDuration(getEnv("JWT_TTL", "24h"), 24*time.Hour),
		RedisURL:           os.Getenv("REDIS_URL"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		SessionTTL:         parseDuration(getEnv("SESSION_TTL", "30m"), 30*time.Minute),
		DatasetPath:        os.Getenv("DATASET_PATH"),
		LexiconPath:        os.Getenv("LEXICON_PATH"),
		PrefsSecret:        os.Getenv("PREFS_SECRET"),
		PrefsDir:           getEnv("PREFS_DIR", "data/prefs"),
		PrefsBackend:       strings.ToLower(getEnv("PREFS_BACKEND", "postgres")),
		ReservationBaseURL: os.Getenv("RESERVATION_BASE_URL"),
		PhoneRegion:        strings.ToUpper(getEnv("PHONE_REGION", "DE")),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_TURNS", "30/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_TURNS value: %w", err)
	}
	cfg.RateLimitTurn = rl

	if cfg.MaxSessions, err = parsePositiveInt(getEnv("MAX_SESSIONS", "1000")); err != nil {
		return nil, fmt.Errorf("invalid MAX_SESSIONS value: %w", err)
	}
	if cfg.DialogTopK, err = parsePositiveInt(getEnv("DIALOG_TOP_K", "5")); err != nil {
		return nil, fmt.Errorf("invalid DIALOG_TOP_K value: %w", err)
	}

	switch cfg.PrefsBackend {
	case "postgres", "file":
	default:
		return nil, fmt.Errorf("invalid PREFS_BACKEND value: %q", cfg.PrefsBackend)
	}

	return cfg, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parsePositiveInt(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func splitList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
