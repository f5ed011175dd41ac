package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()

	prom := observability.NewProm(prometheus.NewRegistry())
	return New(16, ttl, prom, observability.NopLogger())
}

func TestGetOrFetch_ServesFreshEntryWithoutRefetch(t *testing.T) {
	c := newTestCache(t, time.Minute)

	var fetches atomic.Int64

	fetch := func(ctx context.Context, ifNoneMatch string) (*FetchResult, error) {
		fetches.Add(1)
		return &FetchResult{Body: []byte(`[1,2,3]`)}, nil
	}

	for i := 0; i < 3; i++ {
		body, err := c.GetOrFetch(context.Background(), "exams:list:v1", fetch)
		if err != nil {
			t.Fatalf("GetOrFetch error: %v", err)
		}
		if string(body) != `[1,2,3]` {
			t.Fatalf("unexpected body: %s", body)
		}
	}

	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected one fetch for three reads, got %d", got)
	}
}

func TestGetOrFetch_RevalidatesWithETag(t *testing.T) {
	c := newTestCache(t, 10*time.Millisecond)

	var fetches atomic.Int64
	var lastIfNoneMatch string

	fetch := func(ctx context.Context, ifNoneMatch string) (*FetchResult, error) {
		fetches.Add(1)
		lastIfNoneMatch = ifNoneMatch

		if ifNoneMatch == `"v1"` {
			return &FetchResult{NotModified: true}, nil
		}

		return &FetchResult{Body: []byte(`{"id":"e-1"}`), ETag: `"v1"`}, nil
	}

	if _, err := c.GetOrFetch(context.Background(), "exams:one:v1:e-1", fetch); err != nil {
		t.Fatalf("cold fetch error: %v", err)
	}

	// let the freshness window lapse so the next read revalidates
	time.Sleep(30 * time.Millisecond)

	body, err := c.GetOrFetch(context.Background(), "exams:one:v1:e-1", fetch)
	if err != nil {
		t.Fatalf("revalidating fetch error: %v", err)
	}

	if string(body) != `{"id":"e-1"}` {
		t.Fatalf("304 should serve the retained body, got %s", body)
	}
	if lastIfNoneMatch != `"v1"` {
		t.Fatalf("revalidation should send the remembered etag, sent %q", lastIfNoneMatch)
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected cold fetch + revalidation, got %d", got)
	}
}

func TestGetOrFetch_CollapsesConcurrentLookups(t *testing.T) {
	c := newTestCache(t, time.Minute)

	var fetches atomic.Int64
	release := make(chan struct{})

	fetch := func(ctx context.Context, ifNoneMatch string) (*FetchResult, error) {
		fetches.Add(1)
		<-release
		return &FetchResult{Body: []byte(`[]`)}, nil
	}

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrFetch(context.Background(), "sections:list:v1", fetch); err != nil {
				t.Errorf("GetOrFetch error: %v", err)
			}
		}()
	}

	// give the goroutines a moment to pile onto the flight
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Fatalf("concurrent identical reads should share one fetch, got %d", got)
	}
}

func TestInvalidate_DropsOnlyMatchingPrefix(t *testing.T) {
	c := newTestCache(t, time.Minute)

	var fetches atomic.Int64

	fetch := func(ctx context.Context, ifNoneMatch string) (*FetchResult, error) {
		fetches.Add(1)
		return &FetchResult{Body: []byte(`x`)}, nil
	}

	keys := []string{BuildExamKey("e-1"), BuildSectionsListKey()}

	for _, k := range keys {
		if _, err := c.GetOrFetch(context.Background(), k, fetch); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}

	c.Invalidate(PrefixExams)

	for _, k := range keys {
		if _, err := c.GetOrFetch(context.Background(), k, fetch); err != nil {
			t.Fatalf("reread %s: %v", k, err)
		}
	}

	// 2 seeds + 1 refetch of the invalidated exam key
	if got := fetches.Load(); got != 3 {
		t.Fatalf("expected 3 fetches, got %d", got)
	}
}
