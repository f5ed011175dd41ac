package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/imtihanhq/imtihanctl/internal/observability"
	"golang.org/x/sync/singleflight"
)

// FetchResult is what one network fetch hands back to the cache.
type FetchResult struct {
	Body        []byte
	ETag        string
	NotModified bool
}

// Fetch performs the real request. ifNoneMatch is empty on a cold
// fetch and carries the remembered ETag on a revalidation.
type Fetch func(ctx context.Context, ifNoneMatch string) (*FetchResult, error)

// Cache is the read-path query cache. Fresh responses live in an
// expirable LRU for the staleness window; after that the remembered
// ETag turns the next fetch into a conditional request, and a 304
// serves the retained body without re-downloading it. Concurrent
// identical lookups collapse into one network call.
type Cache struct {
	fresh      *expirable.LRU[string, []byte]
	validators *lru.Cache[string, validator]
	group      singleflight.Group
	prom       *observability.Prom
	log        *slog.Logger
}

type validator struct {
	etag string
	body []byte
}

func New(size int, ttl time.Duration, prom *observability.Prom, log *slog.Logger) *Cache {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	validators, _ := lru.New[string, validator](size)

	return &Cache{
		fresh:      expirable.NewLRU[string, []byte](size, nil, ttl),
		validators: validators,
		prom:       prom,
		log:        log,
	}
}

// GetOrFetch serves key from cache when fresh, revalidates with the
// remembered ETag when stale, and falls back to a full fetch.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch Fetch) ([]byte, error) {
	if body, ok := c.fresh.Get(key); ok {
		c.prom.CacheEventsTotal.WithLabelValues("hit").Inc()
		return body, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.fetchLocked(ctx, key, fetch)
	})

	if err != nil {
		return nil, err
	}

	if shared {
		c.prom.CacheEventsTotal.WithLabelValues("shared").Inc()
	}

	return v.([]byte), nil
}

func (c *Cache) fetchLocked(ctx context.Context, key string, fetch Fetch) ([]byte, error) {
	ifNoneMatch := ""

	val, hasValidator := c.validators.Get(key)

	if hasValidator {
		ifNoneMatch = val.etag
	}

	res, err := fetch(ctx, ifNoneMatch)

	if err != nil {
		return nil, err
	}

	if res.NotModified && hasValidator {
		c.prom.CacheEventsTotal.WithLabelValues("revalidated").Inc()
		c.fresh.Add(key, val.body)
		return val.body, nil
	}

	c.prom.CacheEventsTotal.WithLabelValues("miss").Inc()
	c.fresh.Add(key, res.Body)

	if res.ETag != "" {
		c.validators.Add(key, validator{etag: res.ETag, body: res.Body})
	}

	return res.Body, nil
}

// Invalidate drops every entry whose key starts with prefix. Mutations
// call this for the prefixes they affect.
func (c *Cache) Invalidate(prefix string) {
	for _, key := range c.fresh.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.fresh.Remove(key)
		}
	}

	for _, key := range c.validators.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.validators.Remove(key)
		}
	}
}

func (c *Cache) Clear() {
	c.fresh.Purge()
	c.validators.Purge()
}
