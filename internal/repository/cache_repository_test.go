package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "report:department:3", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "report:department:3", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "report:department:3"))
	assert.NoError(t, repo.Delete(ctx))
}

func TestCacheRepositoryUnreachableIsNotAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewCacheRepository(client, nil)

	var dest map[string]string
	err := repo.Get(context.Background(), "report:department:3", &dest)
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryRejectsUnboundedTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewCacheRepository(client, nil)

	err := repo.Set(context.Background(), "report:department:3", "x", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttl must be positive")
}
