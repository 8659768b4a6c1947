package features

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testCache(t *testing.T, ttl time.Duration) (*DomainAgeCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := newDomainAgeCache(rdb, ttl)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestDomainAgeCacheRoundTrip(t *testing.T) {
	cache, _ := testCache(t, time.Hour)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "example.com"); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Set(ctx, "example.com", 4200)
	days, ok := cache.Get(ctx, "example.com")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if days != 4200 {
		t.Errorf("days = %d, want 4200", days)
	}
}

func TestDomainAgeCacheExpiry(t *testing.T) {
	cache, mr := testCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "example.com", 30)
	mr.FastForward(2 * time.Minute)

	if _, ok := cache.Get(ctx, "example.com"); ok {
		t.Fatal("expected miss after TTL expiry")
	}
}

func TestDomainAgeCacheNilSafe(t *testing.T) {
	var cache *DomainAgeCache
	ctx := context.Background()

	cache.Set(ctx, "example.com", 10)
	if _, ok := cache.Get(ctx, "example.com"); ok {
		t.Fatal("nil cache must always miss")
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("nil cache Close: %v", err)
	}
}

func TestNewDomainAgeCacheEmptyAddr(t *testing.T) {
	if cache := NewDomainAgeCache("", "", time.Hour); cache != nil {
		t.Fatal("empty addr must disable caching")
	}
}

func TestDomainAgeCacheCorruptValue(t *testing.T) {
	cache, mr := testCache(t, time.Hour)
	ctx := context.Background()

	mr.Set(domainAgeKeyPrefix+"example.com", "not-a-number")
	if _, ok := cache.Get(ctx, "example.com"); ok {
		t.Fatal("corrupt value must read as a miss")
	}
}
