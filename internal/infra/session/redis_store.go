package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	repo "storefront/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "checkout:session:"

// チェックアウトセッションをRedisに置く（TTLで自動削除）
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// InitRedis は接続してPingまで確認する
func InitRedis(ctx context.Context, addr, password string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", addr))
	return rdb, nil
}

func (s *RedisStore) Save(ctx context.Context, cs repo.CheckoutSession, ttl time.Duration) error {
	data, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("marshal checkout session: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+cs.Token, data, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, token string) (repo.CheckoutSession, error) {
	data, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return repo.CheckoutSession{}, repo.ErrSessionNotFound
	}
	if err != nil {
		return repo.CheckoutSession{}, err
	}

	var cs repo.CheckoutSession
	if err := json.Unmarshal(data, &cs); err != nil {
		// 壊れた値は無かったことにする
		s.logger.Warn("drop corrupted checkout session", zap.String("token", token), zap.Error(err))
		_ = s.client.Del(ctx, keyPrefix+token).Err()
		return repo.CheckoutSession{}, repo.ErrSessionNotFound
	}
	return cs, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, keyPrefix+token).Err()
}
