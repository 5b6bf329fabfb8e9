package db

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openadstack/adselect/internal/models"
)

// RedisStore serves customer profiles and category spend counters to the
// profile-driven targeting predicates. Profiles are stored as hashes under
// profile:{customerID}; spend counters as integers (cents) under
// spend:{customerID}:{category}.
type RedisStore struct {
	Client *redis.Client
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
	}

	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// NewRedisStore wraps an existing client. Used by tests with miniredis.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

// GetProfile fetches the profile for a customer. A nil profile with nil
// error means the customer is unknown.
func (r *RedisStore) GetProfile(ctx context.Context, customerID string) (*models.CustomerProfile, error) {
	fields, err := r.Client.HGetAll(ctx, profileKey(customerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("profile lookup for %s: %w", customerID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	p := &models.CustomerProfile{CustomerID: customerID}
	p.AgeRange = fields["age_range"]
	if v, ok := fields["parent"]; ok {
		p.Parent, _ = strconv.ParseBool(v)
	}
	return p, nil
}

// PutProfile writes a customer profile. Used by fixtures and tests.
func (r *RedisStore) PutProfile(ctx context.Context, p models.CustomerProfile) error {
	return r.Client.HSet(ctx, profileKey(p.CustomerID), map[string]interface{}{
		"age_range": p.AgeRange,
		"parent":    strconv.FormatBool(p.Parent),
	}).Err()
}

// GetCategorySpend returns the customer's lifetime spend in a category, in
// cents. Unknown customers or categories count as zero.
func (r *RedisStore) GetCategorySpend(ctx context.Context, customerID, category string) (int64, error) {
	val, err := r.Client.Get(ctx, spendKey(customerID, category)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("spend lookup for %s/%s: %w", customerID, category, err)
	}
	return val, nil
}

// AddCategorySpend increments the spend counter for a customer and category.
func (r *RedisStore) AddCategorySpend(ctx context.Context, customerID, category string, cents int64) error {
	return r.Client.IncrBy(ctx, spendKey(customerID, category), cents).Err()
}

func profileKey(customerID string) string {
	return "profile:" + customerID
}

func spendKey(customerID, category string) string {
	return fmt.Sprintf("spend:%s:%s", customerID, category)
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
