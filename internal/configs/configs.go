package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	AppURL                   string
	StoreDriver              string
	DatabaseDSN              string
	RedisAddr                string
	RedisKeyPrefix           string
	RateLimit                int
	ShutdownTimeoutSeconds   int
	ExternalCallTimeout      time.Duration
	UserServiceURL           string
	RequireCreatorForUpdate  bool
	KafkaBrokers             []string
	KafkaTopic               string
	NATSURL                  string
	NATSSubject              string
	EventWorkers             int
	EventQueueSize           int
	ReconcileIntervalSeconds int
	ReconcileBatchSize       int
	ReconcileGraceSeconds    int
}

func Load() Config {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")
	redisHost := getEnv("REDIS_HOST", "127.0.0.1")
	redisPort := getEnv("REDIS_PORT", "6379")

	cfg := Config{
		AppURL:                   fmt.Sprintf("%s:%s", appHost, appPort),
		StoreDriver:              getEnv("STORE_DRIVER", StoreSQLite),
		DatabaseDSN:              getEnv("DATABASE_DSN", "time_exchange.db"),
		RedisAddr:                fmt.Sprintf("%s:%s", redisHost, redisPort),
		RedisKeyPrefix:           getEnv("REDIS_KEY_PREFIX", "time_exchange:"),
		RateLimit:                getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeoutSeconds:   getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20),
		ExternalCallTimeout:      time.Duration(getEnvAsInt("EXTERNAL_CALL_TIMEOUT_MS", 3000)) * time.Millisecond,
		UserServiceURL:           getEnv("USER_SERVICE_URL", ""),
		RequireCreatorForUpdate:  getEnvAsBool("REQUIRE_CREATOR_FOR_UPDATE", false),
		KafkaBrokers:             getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:               getEnv("KAFKA_TOPIC", "task-events"),
		NATSURL:                  getEnv("NATS_URL", ""),
		NATSSubject:              getEnv("NATS_SUBJECT", "tasks"),
		EventWorkers:             getEnvAsInt("EVENT_WORKERS", 2),
		EventQueueSize:           getEnvAsInt("EVENT_QUEUE_SIZE", 100),
		ReconcileIntervalSeconds: getEnvAsInt("RECONCILE_INTERVAL_SECONDS", 30),
		ReconcileBatchSize:       getEnvAsInt("RECONCILE_BATCH_SIZE", 20),
		ReconcileGraceSeconds:    getEnvAsInt("RECONCILE_GRACE_SECONDS", 60),
	}

	validate(cfg)
	return cfg
}

func validate(cfg Config) {
	if cfg.AppURL == "" {
		log.Fatal("APP_URL must not be empty (e.g. 127.0.0.1:8080)")
	}
	if cfg.StoreDriver != StoreSQLite && cfg.StoreDriver != StoreRedis {
		log.Fatalf("STORE_DRIVER must be %q or %q", StoreSQLite, StoreRedis)
	}
	if cfg.StoreDriver == StoreSQLite && cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN must not be empty")
	}
	if cfg.RateLimit <= 0 {
		log.Fatal("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if cfg.ExternalCallTimeout <= 0 {
		log.Fatal("EXTERNAL_CALL_TIMEOUT_MS must be greater than 0")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		log.Fatal("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}
	if cfg.EventWorkers <= 0 {
		log.Fatal("EVENT_WORKERS must be greater than 0")
	}
	if cfg.EventQueueSize <= 0 {
		log.Fatal("EVENT_QUEUE_SIZE must be greater than 0")
	}
	if cfg.ReconcileIntervalSeconds <= 0 {
		log.Fatal("RECONCILE_INTERVAL_SECONDS must be greater than 0")
	}
	if cfg.ReconcileBatchSize <= 0 {
		log.Fatal("RECONCILE_BATCH_SIZE must be greater than 0")
	}
	if cfg.ReconcileGraceSeconds < 0 {
		log.Fatal("RECONCILE_GRACE_SECONDS must not be negative")
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s", key)
		}
		return i
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Fatalf("invalid boolean value for %s", key)
		}
		return b
	}
	return defaultVal
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
