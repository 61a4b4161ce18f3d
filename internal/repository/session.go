package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionTTL = 11 * time.Hour

type RedisSessionStorage struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

func NewSessionRedisStorage(client *redis.Client, log *zap.SugaredLogger) *RedisSessionStorage {
	return &RedisSessionStorage{client: client, log: log}
}

func (r *RedisSessionStorage) GetUserIdBySession(ctx context.Context, sessionID string) (string, bool) {
	v, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Errorf("failed to read session: %v", err)
		}
		return "", false
	}
	return v, true
}

func (r *RedisSessionStorage) StoreSession(ctx context.Context, sessionID string, userID string) {
	if err := r.client.Set(ctx, sessionKey(sessionID), userID, sessionTTL).Err(); err != nil {
		r.log.Errorf("failed to store session: %v", err)
	}
}

func (r *RedisSessionStorage) DeleteSession(ctx context.Context, sessionID string) bool {
	deleted, err := r.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		r.log.Errorf("failed to delete session: %v", err)
		return false
	}
	return deleted > 0
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
