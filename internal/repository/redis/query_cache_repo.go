package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// stringStore команды Redis, которыми пользуется кэш. *redis.Client им удовлетворяет.
type stringStore interface {
	Get(ctx context.Context, key string) *r.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd
	Del(ctx context.Context, keys ...string) *r.IntCmd
}

// cachedVector модель вектора запроса в кэше
type cachedVector struct {
	Key    string    `json:"key"`
	Vector []float32 `json:"vector"`
}

// QueryCacheRepo кэширует эмбеддинги поисковых запросов
type QueryCacheRepo struct {
	client stringStore
	logger logger.Logger
}

func NewQueryCacheRepo(client *r.Client, logger logger.Logger) *QueryCacheRepo {
	return newQueryCacheRepo(client, logger)
}

func newQueryCacheRepo(client stringStore, logger logger.Logger) *QueryCacheRepo {
	return &QueryCacheRepo{
		client: client,
		logger: logger,
	}
}

// GetVector возвращает закэшированный вектор. Промах кэша не считается ошибкой.
func (c *QueryCacheRepo) GetVector(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, false, nil // cache miss
	}
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var model cachedVector
	if err := json.Unmarshal(data, &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed for %s: %v", key, e.Wrap(whereami.WhereAmI(), err))
		return nil, false, nil
	}

	if model.Key != key || len(model.Vector) == 0 {
		c.logger.Warnf("Cache key mismatch: key: %s, model_key: %s", key, model.Key)
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false, nil
	}

	return model.Vector, true, nil
}

// SetVector сохраняет вектор запроса с заданным TTL
func (c *QueryCacheRepo) SetVector(ctx context.Context, key string, vector []float32, ttl time.Duration) error {
	data, err := json.Marshal(cachedVector{Key: key, Vector: vector})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("marshal %s: %w", key, err))
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
