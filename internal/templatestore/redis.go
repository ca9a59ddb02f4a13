package templatestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	recordKeyPrefix  = "template:"
	productKeyPrefix = "template_product:"
)

// RedisBackend stores directory records in Redis so registry state survives
// restarts and is shared across instances. Expiry rides on native key TTLs,
// so PurgeExpired is a no-op here.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an already-connected Redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// ConnectRedis creates a Redis client and verifies the connection with a ping.
func ConnectRedis(address, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisBackend) Get(ctx context.Context, storeID string) (Record, bool, error) {
	raw, err := r.client.Get(ctx, recordKeyPrefix+storeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, false, err
	}
	return record, true, nil
}

func (r *RedisBackend) LookupProduct(ctx context.Context, externalProductID string) (Record, bool, error) {
	storeID, err := r.client.Get(ctx, productKeyPrefix+externalProductID).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r.Get(ctx, storeID)
}

func (r *RedisBackend) Put(ctx context.Context, record Record, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, recordKeyPrefix+record.TemplateStoreID, raw, ttl).Err(); err != nil {
		return err
	}
	return r.client.Set(ctx, productKeyPrefix+record.ExternalProductID, record.TemplateStoreID, ttl).Err()
}

func (r *RedisBackend) PurgeExpired(context.Context, time.Time) error {
	return nil
}
