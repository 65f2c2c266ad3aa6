package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	SessionCookieName    string
	SessionTTL           time.Duration
	IdentityTokenTTL     time.Duration
	InviteTTL            time.Duration
	TokenSigningKey      string
	TokenIssuer          string
	BootstrapSecret      string
	ServiceName          string
	RateLimitRPM         int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Production reports whether the service runs in a production deployment.
func (c Config) Production() bool {
	return c.Environment == "production"
}

// Load reads configuration from environment variables with sane defaults.
// BOOTSTRAP_SECRET intentionally has no default: when unset, the bootstrap
// endpoint refuses instead of falling back to a shared string.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		SessionCookieName:    getEnv("SESSION_COOKIE_NAME", "ainex_session"),
		SessionTTL:           getDuration("SESSION_TTL", 14*24*time.Hour),
		IdentityTokenTTL:     getDuration("IDENTITY_TOKEN_TTL", 5*time.Minute),
		InviteTTL:            getDuration("INVITE_TTL", 7*24*time.Hour),
		TokenSigningKey:      os.Getenv("TOKEN_SIGNING_KEY"),
		TokenIssuer:          getEnv("TOKEN_ISSUER", "https://auth.ainexsuite.com"),
		BootstrapSecret:      strings.TrimSpace(os.Getenv("BOOTSTRAP_SECRET")),
		ServiceName:          getEnv("SERVICE_NAME", "ainexsuite-bridge"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", nil),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(cfg.TokenSigningKey) == "" {
		return Config{}, fmt.Errorf("TOKEN_SIGNING_KEY is required")
	}
	if len(cfg.TokenSigningKey) < 32 {
		return Config{}, fmt.Errorf("TOKEN_SIGNING_KEY must be at least 32 bytes")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
