package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sanad-exam-service/internal/domain"
)

// TestLoader fetches test definitions from a backing store (e.g., Postgres).
type TestLoader interface {
	LoadTest(ctx context.Context, testID string) (domain.Test, error)
}

// TestCache caches whole test definitions in Redis and falls back to a
// loader on cache miss. Snapshots are stored as:
// SET test:{testID}:snapshot {json}
type TestCache struct {
	client *redis.Client
	loader TestLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewTestCache(client *redis.Client, loader TestLoader, ttl time.Duration) *TestCache {
	return &TestCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TestCache) GetTest(ctx context.Context, testID string) (domain.Test, error) {
	key := c.key(testID)

	if test, ok := c.cached(ctx, key); ok {
		return test, nil
	}

	result, err, _ := c.sf.Do(testID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if test, ok := c.cached(ctx, key); ok {
			return test, nil
		}

		test, err := c.loader.LoadTest(ctx, testID)
		if err != nil {
			return domain.Test{}, err
		}

		data, err := json.Marshal(test)
		if err != nil {
			return domain.Test{}, fmt.Errorf("encode test: %w", err)
		}
		_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()

		return test, nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return result.(domain.Test), nil
}

func (c *TestCache) cached(ctx context.Context, key string) (domain.Test, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Test{}, false
	}
	var test domain.Test
	if err := json.Unmarshal(raw, &test); err != nil {
		return domain.Test{}, false
	}
	return test, true
}

func (c *TestCache) key(testID string) string {
	return "test:" + testID + ":snapshot"
}

func (c *TestCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
