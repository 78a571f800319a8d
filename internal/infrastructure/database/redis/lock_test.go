package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when TEST_REDIS_ADDR is set
func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c := NewClient(redis.NewClient(&redis.Options{Addr: addr}))
	require.NoError(t, c.Health())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestTryLock(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test:" + t.Name()

	release, ok, err := c.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()

	release, ok, err = c.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}
