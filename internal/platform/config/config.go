package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	liststr "voicedesk/pkg/platform/strings"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Calls     CallsConfig
	Evaluator EvaluatorConfig
	LogLevel  slog.Level
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// PIIHashKey keys the digest used for phone/email values in logs.
	PIIHashKey string
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers      []string
	JournalTopic string
	Partitions   int32
}

// CallsConfig bounds per-call work.
type CallsConfig struct {
	SessionTTL           time.Duration
	OperationTimeout     time.Duration
	JournalWriteTimeout  time.Duration
	JournalEvictInterval time.Duration
	PhoneMatchDigits     int
}

type EvaluatorConfig struct {
	QueueSize     int
	MaxAttempts   int
	RetryBackoff  time.Duration
	SweepInterval time.Duration
	// MetricsAddr is where the standalone evaluator serves /metrics.
	MetricsAddr string
}

// FromEnv builds the config from environment variables so main stays lean.
// Unset Postgres/Redis/Kafka settings select in-memory or disabled backends.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:            envString("VOICEDESK_ADDR", ":8080"),
			JWTSigningKey:   jwtSigningKey,
			JWTIssuer:       envString("JWT_ISSUER", "voicedesk"),
			JWTAudience:     envString("JWT_AUDIENCE", "voicedesk-runtime"),
			ReadTimeout:     envDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    envDuration("HTTP_WRITE_TIMEOUT", 35*time.Second),
			IdleTimeout:     envDuration("HTTP_IDLE_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			PIIHashKey:      envString("PII_HASH_KEY", jwtSigningKey),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      envList("KAFKA_BROKERS"),
			JournalTopic: envString("KAFKA_JOURNAL_TOPIC", "voicedesk.journal"),
			Partitions:   int32(envInt("KAFKA_JOURNAL_PARTITIONS", 3)),
		},
		Calls: CallsConfig{
			SessionTTL:           envDuration("SESSION_TTL", 2*time.Hour),
			OperationTimeout:     envDuration("OPERATION_TIMEOUT", 5*time.Second),
			JournalWriteTimeout:  envDuration("JOURNAL_WRITE_TIMEOUT", 3*time.Second),
			JournalEvictInterval: envDuration("JOURNAL_EVICT_INTERVAL", 5*time.Minute),
			PhoneMatchDigits:     envInt("PHONE_MATCH_DIGITS", 9),
		},
		Evaluator: EvaluatorConfig{
			QueueSize:     envInt("EVALUATOR_QUEUE_SIZE", 256),
			MaxAttempts:   envInt("EVALUATOR_MAX_ATTEMPTS", 3),
			RetryBackoff:  envDuration("EVALUATOR_RETRY_BACKOFF", 2*time.Second),
			SweepInterval: envDuration("EVALUATOR_SWEEP_INTERVAL", 5*time.Minute),
			MetricsAddr:   envString("EVALUATOR_METRICS_ADDR", ":9091"),
		},
		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envList(key string) []string {
	return liststr.SplitList(os.Getenv(key))
}

func envLevel(key string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(key))); err != nil {
		return fallback
	}
	return level
}
