package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"sanad-exam-service/internal/domain"
)

type countingLoader struct {
	loads int64
	tests map[string]domain.Test
}

func (l *countingLoader) LoadTest(_ context.Context, testID string) (domain.Test, error) {
	atomic.AddInt64(&l.loads, 1)
	if test, ok := l.tests[testID]; ok {
		return test, nil
	}
	return domain.Test{}, domain.ErrTestNotFound
}

func TestTestCacheHitsRedisBeforeLoader(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	loader := &countingLoader{tests: map[string]domain.Test{
		"t1": {ID: "t1", Title: "أساسيات الحديث"},
	}}
	cache := NewTestCache(client, loader, time.Minute)

	for i := 0; i < 3; i++ {
		test, err := cache.GetTest(ctx, "t1")
		if err != nil {
			t.Fatalf("get %d failed: %v", i, err)
		}
		if test.Title != "أساسيات الحديث" {
			t.Fatalf("title = %q", test.Title)
		}
	}
	if n := atomic.LoadInt64(&loader.loads); n != 1 {
		t.Fatalf("loader hit %d times, want 1", n)
	}
	if !mr.Exists("test:t1:snapshot") {
		t.Fatalf("expected snapshot key in redis")
	}
}

func TestTestCacheReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	loader := &countingLoader{tests: map[string]domain.Test{"t1": {ID: "t1"}}}
	cache := NewTestCache(client, loader, time.Minute)

	if _, err := cache.GetTest(ctx, "t1"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	// jitter adds at most 10% to the TTL
	mr.FastForward(2 * time.Minute)
	if _, err := cache.GetTest(ctx, "t1"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if n := atomic.LoadInt64(&loader.loads); n != 2 {
		t.Fatalf("loader hit %d times, want 2 after expiry", n)
	}
}

func TestTestCachePropagatesNotFound(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewTestCache(client, &countingLoader{}, time.Minute)
	if _, err := cache.GetTest(ctx, "missing"); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
}
