package sessionstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/session"
)

const keyPrefix = "session:"

type redisStore struct {
	client *redis.Client
}

var _ session.Store = (*redisStore)(nil) // interface compliance check

// NewRedisClient opens a connection pool to the configured redis server.
func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisStore(client *redis.Client) session.Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key, field string) (string, error) {
	val, err := s.client.HGet(ctx, keyPrefix+key, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, errors.Wrap(err, "getting session field")
}

func (s *redisStore) Set(ctx context.Context, key, field, value string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keyPrefix+key, field, value)
		if ttl > 0 {
			pipe.Expire(ctx, keyPrefix+key, ttl)
		}
		return nil
	})
	return errors.Wrap(err, "setting session field")
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, keyPrefix+key).Err(), "deleting session")
}
