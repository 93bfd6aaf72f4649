//go:build integration

package lockout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dlvery/internal/auth/lockout"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.Redis
	store *lockout.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.StartRedis(s.T())
	s.store = lockout.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestIncrementLockClear() {
	ctx := context.Background()
	key := lockout.Key("agent1", "10.0.0.1")

	_, err := s.store.Get(ctx, key)
	s.True(errors.Is(err, sentinel.ErrNotFound))

	rec, err := s.store.Increment(ctx, key, time.Minute)
	s.Require().NoError(err)
	s.Equal(1, rec.Failures)
	rec, err = s.store.Increment(ctx, key, time.Minute)
	s.Require().NoError(err)
	s.Equal(2, rec.Failures)

	ttl, err := s.redis.Client.TTL(ctx, "lockout:"+key).Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, time.Minute)

	until := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	s.Require().NoError(s.store.Lock(ctx, key, until))
	rec, err = s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.Require().NotNil(rec.LockedUntil)
	s.True(rec.LockedUntil.Equal(until))
	s.True(rec.IsLockedAt(time.Now()))

	s.Require().NoError(s.store.Clear(ctx, key))
	_, err = s.store.Get(ctx, key)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
