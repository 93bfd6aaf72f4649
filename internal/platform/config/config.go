package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures process-level configuration.
type Server struct {
	Addr        string
	Environment string
	LogFormat   string
	LogLevel    string
	// RequestTimeout bounds each HTTP request, including store round-trips.
	RequestTimeout time.Duration

	Auth     AuthConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Minio    MinioConfig
	Kafka    KafkaConfig
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	JWTSigningKey string
	Issuer        string
	TokenTTL      time.Duration
	BcryptCost    int
	// DeviceFingerprint stamps sessions with a hash of the client's browser and OS.
	DeviceFingerprint bool

	LoginMaxAttempts  int
	LoginWindow       time.Duration
	LoginLockDuration time.Duration
}

// PostgresConfig enables the Postgres stores when DSN is set.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig enables the Redis revocation list when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MinioConfig enables the object-store signature backend when Endpoint is set.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// KafkaConfig enables status event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers     []string
	StatusTopic string
}

// IsProduction reports whether the process runs with production safeguards.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// Validate rejects configurations that are unsafe outside development.
func (s Server) Validate() error {
	if !s.IsProduction() {
		return nil
	}
	var errs []error
	if s.Auth.JWTSigningKey == devSigningKey || len(s.Auth.JWTSigningKey) < 32 {
		errs = append(errs, errors.New("DLVERY_JWT_SIGNING_KEY must be set to at least 32 characters in production"))
	}
	if s.Postgres.DSN == "" {
		errs = append(errs, errors.New("DLVERY_POSTGRES_DSN is required in production"))
	}
	if s.Redis.URL == "" {
		errs = append(errs, errors.New("DLVERY_REDIS_URL is required in production"))
	}
	return errors.Join(errs...)
}

// FromEnv builds a Server config from DLVERY_* environment variables so main stays lean.
// Unset values fall back to development defaults.
func FromEnv() Server {
	return Server{
		Addr:           env("DLVERY_ADDR", ":8080"),
		Environment:    env("DLVERY_ENV", "development"),
		LogFormat:      env("DLVERY_LOG_FORMAT", "text"),
		LogLevel:       env("DLVERY_LOG_LEVEL", "info"),
		RequestTimeout: envDuration("DLVERY_REQUEST_TIMEOUT", 15*time.Second),
		Auth: AuthConfig{
			// Use a default for development - must be overridden in production
			JWTSigningKey: env("DLVERY_JWT_SIGNING_KEY", devSigningKey),
			Issuer:        env("DLVERY_JWT_ISSUER", "dlvery"),
			TokenTTL:      envDuration("DLVERY_TOKEN_TTL", 8*time.Hour),
			BcryptCost:    envInt("DLVERY_BCRYPT_COST", 12),

			DeviceFingerprint: os.Getenv("DLVERY_DEVICE_FINGERPRINT") != "false",

			LoginMaxAttempts:  envInt("DLVERY_LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:       envDuration("DLVERY_LOGIN_WINDOW", 15*time.Minute),
			LoginLockDuration: envDuration("DLVERY_LOGIN_LOCK_DURATION", 15*time.Minute),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("DLVERY_POSTGRES_DSN"),
			MaxOpenConns: envInt("DLVERY_POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envInt("DLVERY_POSTGRES_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("DLVERY_REDIS_URL"),
			PoolSize:     envInt("DLVERY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("DLVERY_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("DLVERY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("DLVERY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("DLVERY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Minio: MinioConfig{
			Endpoint:  os.Getenv("DLVERY_MINIO_ENDPOINT"),
			AccessKey: os.Getenv("DLVERY_MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("DLVERY_MINIO_SECRET_KEY"),
			Bucket:    env("DLVERY_MINIO_BUCKET", "dlvery-signatures"),
			UseSSL:    os.Getenv("DLVERY_MINIO_USE_SSL") == "true",
		},
		Kafka: KafkaConfig{
			Brokers:     envList("DLVERY_KAFKA_BROKERS"),
			StatusTopic: env("DLVERY_KAFKA_STATUS_TOPIC", "delivery.status_changed"),
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
