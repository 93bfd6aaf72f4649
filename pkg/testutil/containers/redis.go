//go:build integration

// Package containers starts throwaway backing services for integration tests.
package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7-alpine"

// Redis is a running container plus a client already connected to it.
type Redis struct {
	Container *tcredis.RedisContainer
	Client    *redis.Client
}

// StartRedis starts a Redis container that is torn down with the test.
func StartRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := t.Context()

	ctr, err := tcredis.Run(ctx, redisImage)
	require.NoError(t, err, "start %s", redisImage)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err(), "redis at %s not answering", opts.Addr)

	return &Redis{Container: ctr, Client: client}
}

// FlushAll wipes the keyspace so suites can share one container.
func (r *Redis) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
