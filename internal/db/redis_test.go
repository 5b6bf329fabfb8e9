package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadstack/adselect/internal/models"
)

func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestProfileRoundTrip(t *testing.T) {
	rs := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rs.PutProfile(ctx, models.CustomerProfile{CustomerID: "cust-1", AgeRange: "36-45", Parent: true}))

	p, err := rs.GetProfile(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "cust-1", p.CustomerID)
	assert.Equal(t, "36-45", p.AgeRange)
	assert.True(t, p.Parent)
}

func TestGetProfileUnknownCustomerIsNil(t *testing.T) {
	rs := setupTestRedis(t)

	p, err := rs.GetProfile(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCategorySpendAccumulates(t *testing.T) {
	rs := setupTestRedis(t)
	ctx := context.Background()

	spend, err := rs.GetCategorySpend(ctx, "cust-1", "books")
	require.NoError(t, err)
	assert.Equal(t, int64(0), spend, "unknown counters read as zero")

	require.NoError(t, rs.AddCategorySpend(ctx, "cust-1", "books", 1200))
	require.NoError(t, rs.AddCategorySpend(ctx, "cust-1", "books", 800))

	spend, err = rs.GetCategorySpend(ctx, "cust-1", "books")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), spend)

	other, err := rs.GetCategorySpend(ctx, "cust-1", "garden")
	require.NoError(t, err)
	assert.Equal(t, int64(0), other, "categories are isolated")
}
