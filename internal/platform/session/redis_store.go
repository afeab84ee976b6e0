// Package session stores identity snapshots behind session ids.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"recipe_hub/internal/common"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
	"recipe_hub/internal/platform/config"
)

const keyPrefix = "session:"

var _ repository.SessionRepository = (*RedisStore)(nil)

// ConnectRedis opens a client and pings it once.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Save(ctx context.Context, id string, user model.SessionUser, ttl time.Duration) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("RedisStore.Save: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+id, payload, ttl).Err(); err != nil {
		return common.StoreErrorf("RedisStore.Save", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (model.SessionUser, error) {
	var user model.SessionUser
	payload, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return user, common.ErrNotFound
		}
		return user, common.StoreErrorf("RedisStore.Load", err)
	}
	if err := json.Unmarshal(payload, &user); err != nil {
		return model.SessionUser{}, fmt.Errorf("RedisStore.Load: corrupt session %s: %w", id, err)
	}
	return user, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return common.StoreErrorf("RedisStore.Delete", err)
	}
	return nil
}
