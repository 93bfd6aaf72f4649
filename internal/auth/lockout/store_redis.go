package lockout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dlvery/pkg/platform/sentinel"
)

const (
	redisKeyPrefix    = "lockout:"
	fieldFailures     = "failures"
	fieldLockedUntilS = "locked_until"
)

// RedisStore keeps one hash per key; its TTL is the failure window or the lock, whichever ends later.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	vals, err := s.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("get lockout %s: %w", key, err)
	}
	if len(vals) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return parseRecord(key, vals), nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (*Record, error) {
	rk := redisKeyPrefix + key
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.HIncrBy(ctx, rk, fieldFailures, 1)
		p.ExpireNX(ctx, rk, window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("increment lockout %s: %w", key, err)
	}
	return &Record{Key: key, Failures: int(incr.Val())}, nil
}

func (s *RedisStore) Lock(ctx context.Context, key string, until time.Time) error {
	rk := redisKeyPrefix + key
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, rk, fieldLockedUntilS, until.Unix())
		p.ExpireAt(ctx, rk, until)
		return nil
	})
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear lockout %s: %w", key, err)
	}
	return nil
}

func parseRecord(key string, vals map[string]string) *Record {
	rec := &Record{Key: key}
	if n, err := strconv.Atoi(vals[fieldFailures]); err == nil {
		rec.Failures = n
	}
	if secs, err := strconv.ParseInt(vals[fieldLockedUntilS], 10, 64); err == nil {
		until := time.Unix(secs, 0).UTC()
		rec.LockedUntil = &until
	}
	return rec
}
