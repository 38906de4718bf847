package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client       *redis.Client
	providersTTL time.Duration
}

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client *redis.Client, providersTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:       client,
		providersTTL: providersTTL,
	}
}

// GetProviders returns nil, nil on a cache miss.
func (c *RedisCache) GetProviders(ctx context.Context) ([]domain.Provider, error) {
	data, err := c.client.Get(ctx, providersKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var providers []domain.Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

func (c *RedisCache) SetProviders(ctx context.Context, providers []domain.Provider) error {
	payload, err := json.Marshal(providers)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, providersKey(), payload, c.providersTTL).Err()
}

func (c *RedisCache) InvalidateProviders(ctx context.Context) error {
	return c.client.Del(ctx, providersKey()).Err()
}

// releaseLock deletes the lock only while it still holds the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireSlotLock returns the owner token to pass to ReleaseSlotLock.
func (c *RedisCache) AcquireSlotLock(ctx context.Context, key domain.SlotKey, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, slotLockKey(key), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (c *RedisCache) ReleaseSlotLock(ctx context.Context, key domain.SlotKey, token string) error {
	return releaseLock.Run(ctx, c.client, []string{slotLockKey(key)}, token).Err()
}

func providersKey() string {
	return "cache:providers"
}

func slotLockKey(k domain.SlotKey) string {
	return fmt.Sprintf("lock:slot:%d:%s:%s", k.ProviderID, k.Date, k.Time)
}
