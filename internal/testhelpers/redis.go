package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// TestRedis wraps a running Redis container with the go-redis options
// needed to connect to it.
type TestRedis struct {
	container *tcredis.RedisContainer
	Options   *redis.Options
}

func SetupTestRedis(t *testing.T) *TestRedis {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	opts.DialTimeout = 5 * time.Second

	return &TestRedis{container: container, Options: opts}
}

func (tr *TestRedis) Cleanup(t *testing.T) {
	require.NoError(t, tr.container.Terminate(context.Background()))
}
