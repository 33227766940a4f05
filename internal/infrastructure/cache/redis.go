package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"tokencore/internal/config"
)

// RedisClient backs exactly one consumer in this core:
// internal/infrastructure/idempotency's request-dedup cache for
// POST /payment/purchase. Unlike the teacher, nothing here uses Redis
// for distributed locking — purchase/verify/consume correctness rests on
// the Store's conditional UPDATEs (BalanceRepository.TryDebit,
// TransactionRepository.UpdateStatus) and unique indexes instead (see
// DESIGN.md).
var RedisClient *redis.Client

func InitRedis(cfg *config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}

	RedisClient = client
	log.Println("Redis connected")
	return client
}
