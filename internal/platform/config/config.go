package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "idswyft/pkg/platform/strings"
)

// Config is the full runtime configuration, assembled from environment
// variables so main stays lean.
type Config struct {
	Addr            string
	LogLevel        string
	SandboxMode     bool
	ShutdownTimeout time.Duration

	// VerifyRatePerMinute caps verification attempts per tenant per
	// minute. Zero disables the limiter.
	VerifyRatePerMinute int

	DatabaseURL string

	OCR OCRConfig

	Redis RedisConfig
	Kafka KafkaConfig
	Auth  AuthConfig
}

// OCRConfig points at the external text-recognition service.
type OCRConfig struct {
	ServiceURL string
	Timeout    time.Duration
}

// RedisConfig controls the threshold cache connection. An empty URL
// disables Redis and the service falls back to the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ThresholdTTL time.Duration
}

// KafkaConfig controls the audit outbox relay and consumer. Empty
// brokers disable both and audit events stay in the outbox table.
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
}

// AuthConfig holds the credentials for both API surfaces: tenant JWT
// tokens for verification and a shared operator token for admin routes.
type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminToken    string
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	return Config{
		Addr:            envOr("IDSWYFT_ADDR", ":8080"),
		LogLevel:        envOr("IDSWYFT_LOG_LEVEL", "info"),
		SandboxMode:     os.Getenv("IDSWYFT_SANDBOX_MODE") == "true",
		ShutdownTimeout: envDurationOr("IDSWYFT_SHUTDOWN_TIMEOUT", 15*time.Second),

		VerifyRatePerMinute: envIntOr("VERIFY_RATE_PER_MINUTE", 60),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		OCR: OCRConfig{
			ServiceURL: os.Getenv("OCR_SERVICE_URL"),
			Timeout:    envDurationOr("OCR_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
			ThresholdTTL: envDurationOr("REDIS_THRESHOLD_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       envList("KAFKA_BROKERS"),
			ConsumerGroup: envOr("KAFKA_CONSUMER_GROUP", "idswyft-audit"),
		},
		Auth: AuthConfig{
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envOr("JWT_ISSUER", "idswyft"),
			JWTAudience:   envOr("JWT_AUDIENCE", "api"),
			AdminToken:    os.Getenv("ADMIN_TOKEN"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := platformstrings.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
