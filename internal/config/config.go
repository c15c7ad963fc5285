package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_order/internal/domain"
)

const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	CheckoutTimeout    time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	OwnerID string

	BackendURL          string
	BackendTimeout      time.Duration
	SheetPollInterval   time.Duration
	BreakerFailures     uint32
	BreakerOpenTimeout  time.Duration
	DefaultPayment      domain.PaymentMethod
	CompensationTimeout time.Duration

	CartBackend          string
	CartSaveTimeout      time.Duration
	SQLitePath           string
	SQLiteMigrationsPath string
	MongoURI             string
	MongoDBName          string
	RedisAddr            string
	RedisPassword        string
	CacheTTL             time.Duration

	OutboxEnabled    bool
	DBHost           string
	DBPort           int
	DBUser           string
	DBPassword       string
	DBName           string
	OutboxMigrations string

	KafkaBrokers      []string
	TopicOrderEvents  string
	TopicOrderOrphans string
	ReconcilerGroupID string
	ReconcilerEnabled bool

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		CheckoutTimeout:    getEnvDuration("CHECKOUT_TIMEOUT", 5*time.Minute),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		OwnerID: getEnv("OWNER_ID", "device"),

		BackendURL:          getEnv("BACKEND_URL", "http://localhost:8000/api/v1"),
		BackendTimeout:      getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
		SheetPollInterval:   getEnvDuration("PAYMENT_SHEET_POLL_INTERVAL", 2*time.Second),
		BreakerFailures:     uint32(getEnvInt("BREAKER_FAILURES", 5)),
		BreakerOpenTimeout:  getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		CompensationTimeout: getEnvDuration("COMPENSATION_TIMEOUT", 10*time.Second),

		CartBackend:          strings.ToLower(getEnv("CART_BACKEND", BackendSQLite)),
		CartSaveTimeout:      getEnvDuration("CART_SAVE_TIMEOUT", 5*time.Second),
		SQLitePath:           getEnv("SQLITE_PATH", "./cart.db"),
		SQLiteMigrationsPath: getEnv("SQLITE_MIGRATIONS_PATH", "./internal/repository/migrations/sqlite"),
		MongoURI:             getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:          getEnv("MONGO_DB_NAME", "orderdb"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		CacheTTL:             getEnvDuration("CACHE_TTL", 15*time.Minute),

		OutboxEnabled:    getEnvBool("OUTBOX_ENABLED", false),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnvInt("DB_PORT", 5432),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "ordering"),
		OutboxMigrations: getEnv("OUTBOX_MIGRATIONS_PATH", "./internal/outbox/migrations"),

		KafkaBrokers:      getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
		TopicOrderEvents:  getEnv("TOPIC_ORDER_EVENTS", "order-events"),
		TopicOrderOrphans: getEnv("TOPIC_ORDER_ORPHANS", "order-orphans"),
		ReconcilerGroupID: getEnv("RECONCILER_GROUP_ID", "order-reconciler"),
		ReconcilerEnabled: getEnvBool("RECONCILER_ENABLED", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	method, err := domain.ParsePaymentMethod(getEnv("DEFAULT_PAYMENT_METHOD", string(domain.PaymentCard)))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_PAYMENT_METHOD: %w", err)
	}
	cfg.DefaultPayment = method

	switch cfg.CartBackend {
	case BackendSQLite, BackendMongo:
	default:
		return nil, fmt.Errorf("CART_BACKEND must be %q or %q, got %q", BackendSQLite, BackendMongo, cfg.CartBackend)
	}
	if cfg.OwnerID == "" {
		return nil, fmt.Errorf("OWNER_ID must not be empty")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
