// Package refdata owns the reference-data cache for narrator, book and
// attribution lists. One cache object is constructed at wiring time and
// passed by reference; there is no ambient singleton and no scattered
// invalidation.
package refdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sanad-exam-service/internal/domain"
)

const (
	KeyNarrators    = "narrators"
	KeyBooks        = "books"
	KeyAttributions = "attributions"
)

// Keys lists the known reference-data collections.
var Keys = []string{KeyNarrators, KeyBooks, KeyAttributions}

// Loader fetches one reference list from the backing store.
type Loader interface {
	LoadReference(ctx context.Context, key string) ([]string, error)
}

// Cache is a TTL cache over a Loader with explicit refresh and
// invalidation.
type Cache struct {
	loader Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	values    []string
	expiresAt time.Time
}

func NewCache(loader Loader, ttl time.Duration) *Cache {
	return &Cache{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]entry),
	}
}

// Get returns the cached list for key, loading it on miss or expiry.
// forceRefresh bypasses the cache and replaces the entry.
func (c *Cache) Get(ctx context.Context, key string, forceRefresh bool) ([]string, error) {
	if !forceRefresh {
		now := c.clock()
		c.mu.RLock()
		if e, ok := c.entries[key]; ok && e.expiresAt.After(now) {
			c.mu.RUnlock()
			return e.values, nil
		}
		c.mu.RUnlock()
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if !forceRefresh {
			now := c.clock()
			c.mu.RLock()
			if e, ok := c.entries[key]; ok && e.expiresAt.After(now) {
				c.mu.RUnlock()
				return e.values, nil
			}
			c.mu.RUnlock()
		}

		values, err := c.loader.LoadReference(ctx, key)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry{
			values:    values,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// Invalidate drops one cached list; the next Get reloads it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticLoader serves fixed lists (useful for tests/demos).
type StaticLoader struct {
	lists map[string][]string
}

func NewStaticLoader(lists map[string][]string) *StaticLoader {
	return &StaticLoader{lists: lists}
}

func (l *StaticLoader) LoadReference(_ context.Context, key string) ([]string, error) {
	if values, ok := l.lists[key]; ok {
		return values, nil
	}
	return nil, domain.ErrReferenceNotFound
}
