package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	JWTSecret      string
	AllowedOrigins []string

	StoragePath    string
	StorageBaseURL string

	RenderBaseURL  string
	RenderAPIKey   string
	TextGenAPIKey  string
	TextGenModel   string
	TextGenBaseURL string
	MetaBaseURL    string
	YouTubeBaseURL string

	// GatePermits bounds concurrent calls to the external image-generation
	// provider; GateWaitTimeout is how long a caller queues before the gate
	// force-recovers the permit.
	GatePermits     int
	GateWaitTimeout time.Duration

	// BrandTimeout caps one brand's generation step-chain.
	BrandTimeout time.Duration

	QuotaDailyLimit int
	QuotaResetHour  int
	QuotaTimezone   string

	SlotTimezone string
	LaunchDate   string

	PublishPollInterval time.Duration
	BrandCacheTTL       time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from the environment, reading .env files
// first when present, and applies defaults where needed.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		AllowedOrigins: splitEnvList("CORS_ALLOWED_ORIGINS"),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),

		RenderBaseURL:  getEnv("RENDER_BASE_URL", "http://localhost:9090"),
		RenderAPIKey:   os.Getenv("RENDER_API_KEY"),
		TextGenAPIKey:  os.Getenv("TEXTGEN_API_KEY"),
		TextGenModel:   getEnv("TEXTGEN_MODEL", "gemini-1.5-flash"),
		TextGenBaseURL: getEnv("TEXTGEN_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		MetaBaseURL:    getEnv("META_BASE_URL", "https://graph.facebook.com/v19.0"),
		YouTubeBaseURL: getEnv("YOUTUBE_BASE_URL", "https://www.googleapis.com"),

		GatePermits:     getEnvInt("GENERATION_GATE_PERMITS", 1),
		GateWaitTimeout: time.Second * time.Duration(getEnvInt("GENERATION_GATE_WAIT_SECONDS", 180)),

		BrandTimeout: time.Second * time.Duration(getEnvInt("BRAND_TIMEOUT_SECONDS", 300)),

		QuotaDailyLimit: getEnvInt("QUOTA_DAILY_LIMIT", 10000),
		QuotaResetHour:  getEnvInt("QUOTA_RESET_HOUR", 0),
		QuotaTimezone:   getEnv("QUOTA_TIMEZONE", "America/Los_Angeles"),

		SlotTimezone: getEnv("SLOT_TIMEZONE", "UTC"),
		LaunchDate:   getEnv("LAUNCH_DATE", ""),

		PublishPollInterval: time.Second * time.Duration(getEnvInt("PUBLISH_POLL_SECONDS", 30)),
		BrandCacheTTL:       time.Second * time.Duration(getEnvInt("BRAND_CACHE_TTL_SECONDS", 60)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.GatePermits < 1 {
		cfg.GatePermits = 1
	}

	return cfg, nil
}

// LaunchTime parses the configured launch date (YYYY-MM-DD) in the slot
// timezone. Zero time when unset.
func (c *Config) LaunchTime() (time.Time, error) {
	if c.LaunchDate == "" {
		return time.Time{}, nil
	}
	loc, err := time.LoadLocation(c.SlotTimezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot timezone: %w", err)
	}
	t, err := time.ParseInLocation("2006-01-02", c.LaunchDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse launch date: %w", err)
	}
	return t, nil
}

func splitEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
