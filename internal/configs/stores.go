package config

import (
	"log"

	repository "time-exchange.com/time-exchange/internal/repositories"
)

// OpenStores connects the backend named by STORE_DRIVER.
func OpenStores(cfg Config) repository.Stores {
	switch cfg.StoreDriver {
	case StoreRedis:
		log.Printf("using redis store at %s (prefix %q)", cfg.RedisAddr, cfg.RedisKeyPrefix)
		return repository.NewRedisStores(NewRedisClient(cfg.RedisAddr), cfg.RedisKeyPrefix)
	default:
		log.Printf("using sqlite store at %s", cfg.DatabaseDSN)
		return repository.NewGormStores(NewDatabase(cfg.DatabaseDSN))
	}
}
