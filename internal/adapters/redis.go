package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chess_mate/internal/bootstrap"
)

type AdapterRedis struct {
	client *redis.Client
	cfg    *bootstrap.Config
}

func NewAdapterRedis(cfg *bootstrap.Config) *AdapterRedis {
	return &AdapterRedis{
		cfg: cfg,
	}
}

func (a *AdapterRedis) Init(ctx context.Context) error {
	a.client = redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisUrl,
		Password: "",
		DB:       0,
	})

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.client.Ping(ctxPing).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

func (a *AdapterRedis) GetClient() *redis.Client {
	return a.client
}

func (a *AdapterRedis) Close(ctx context.Context) error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}
