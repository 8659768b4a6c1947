package features

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const domainAgeKeyPrefix = "cyberguard:domain-age:"

// DomainAgeCache caches WHOIS-derived domain ages in Redis so repeat
// submissions for the same domain skip the port-43 round trip. All methods
// are nil-safe: a nil cache behaves as a permanent miss.
type DomainAgeCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDomainAgeCache connects to Redis at addr. Returns nil when addr is
// empty, which callers treat as caching disabled.
func NewDomainAgeCache(addr, password string, ttl time.Duration) *DomainAgeCache {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  250 * time.Millisecond,
		WriteTimeout: 250 * time.Millisecond,
	})
	return newDomainAgeCache(rdb, ttl)
}

func newDomainAgeCache(rdb *redis.Client, ttl time.Duration) *DomainAgeCache {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &DomainAgeCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached age in days for domain, if present.
func (c *DomainAgeCache) Get(ctx context.Context, domain string) (int, bool) {
	if c == nil {
		return 0, false
	}
	val, err := c.rdb.Get(ctx, domainAgeKeyPrefix+domain).Result()
	if err != nil {
		return 0, false
	}
	days, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return days, true
}

// Set stores the age in days for domain. Failures are ignored: the cache is
// an optimization, never a source of truth.
func (c *DomainAgeCache) Set(ctx context.Context, domain string, days int) {
	if c == nil {
		return
	}
	c.rdb.Set(ctx, domainAgeKeyPrefix+domain, strconv.Itoa(days), c.ttl)
}

// Close releases the underlying Redis connection.
func (c *DomainAgeCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
