package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the process configuration and the hot-reloadable aggregation tuning.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewAggregateConfigHolder,
	),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	Upstream  UpstreamConfig
	RateLimit RateLimitConfig
}

// UpstreamConfig describes the catalog APIs the service reads from.
type UpstreamConfig struct {
	GamesBaseURL    string
	PassesBaseURL   string
	FallbackBaseURL string
	LinkBaseURL     string
	UserAgent       string
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
}

// RateLimitConfig controls the inbound limiter on lookup routes.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LookupRate    float64
	LookupBurst   int
	// LookupLockTTL bounds how long one user lookup may hold its in-flight lock.
	LookupLockTTL time.Duration
}

const (
	DefaultGamesBaseURL    = "https://games.roproxy.com"
	DefaultPassesBaseURL   = "https://apis.roproxy.com"
	DefaultFallbackBaseURL = "https://games.roproxy.com"
	DefaultLinkBaseURL     = "https://www.roblox.com"

	MaxConnectTimeout = 5 * time.Second
	MaxReadTimeout    = 20 * time.Second
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	appName := getenv("APP_SERVICE", "roproxy-gamepasses")
	appVersion := getenv("APP_VERSION", "1.0")

	cfg := Config{
		AppName:      appName,
		AppVersion:   appVersion,
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     "0.0.0.0:" + getenv("PORT", "8000"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", ""),
		Upstream: UpstreamConfig{
			GamesBaseURL:    trimBaseURL(getenv("UPSTREAM_GAMES_BASE_URL", DefaultGamesBaseURL)),
			PassesBaseURL:   trimBaseURL(getenv("UPSTREAM_PASSES_BASE_URL", DefaultPassesBaseURL)),
			FallbackBaseURL: trimBaseURL(getenv("UPSTREAM_FALLBACK_BASE_URL", DefaultFallbackBaseURL)),
			LinkBaseURL:     trimBaseURL(getenv("UPSTREAM_LINK_BASE_URL", DefaultLinkBaseURL)),
			UserAgent:       appName + "/" + appVersion,
			ConnectTimeout:  clampSeconds(getenvInt("UPSTREAM_CONNECT_TIMEOUT_SECONDS", 5), MaxConnectTimeout),
			ReadTimeout:     clampSeconds(getenvInt("UPSTREAM_READ_TIMEOUT_SECONDS", 20), MaxReadTimeout),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
			LookupRate:    getenvFloat("RATE_LIMIT_LOOKUP_RATE", 1),
			LookupBurst:   getenvInt("RATE_LIMIT_LOOKUP_BURST", 5),
			LookupLockTTL: time.Duration(getenvInt("RATE_LIMIT_LOOKUP_LOCK_TTL_SECONDS", 30)) * time.Second,
		},
	}

	return cfg
}

// clampSeconds keeps the upstream timeouts within the service policy ceiling.
func clampSeconds(seconds int, ceiling time.Duration) time.Duration {
	d := time.Duration(seconds) * time.Second
	if d <= 0 || d > ceiling {
		return ceiling
	}
	return d
}

func trimBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
