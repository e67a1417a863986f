package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClockedCache(ttl time.Duration) (*Cache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(ttl)
	c.now = clk.now
	return c, clk
}

func TestCache_DeduplicatesConcurrentFetches(t *testing.T) {
	c, _ := newClockedCache(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "tents", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]any, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), "products?business_id=1", fetch)
			if err != nil {
				t.Errorf("fetch: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("fetches=%d want 1", calls.Load())
	}
	for i, v := range results {
		if v != "tents" {
			t.Fatalf("result[%d]=%v", i, v)
		}
	}
}

func TestCache_FreshHitStaleRevalidate(t *testing.T) {
	c, clk := newClockedCache(time.Minute)
	var version atomic.Int32
	fetch := func(context.Context) (any, error) { return version.Add(1), nil }

	v, _ := c.Fetch(context.Background(), "k", fetch)
	if v != int32(1) {
		t.Fatalf("first=%v", v)
	}
	v, _ = c.Fetch(context.Background(), "k", fetch)
	if v != int32(1) || version.Load() != 1 {
		t.Fatalf("fresh hit refetched: v=%v fetches=%d", v, version.Load())
	}

	clk.advance(2 * time.Minute)
	v, _ = c.Fetch(context.Background(), "k", fetch)
	if v != int32(1) {
		t.Fatalf("stale hit must serve the old value, got %v", v)
	}
	c.Wait()
	if got, _ := c.Peek("k"); got != int32(2) {
		t.Fatalf("revalidated=%v", got)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c, _ := newClockedCache(time.Minute)
	boom := errors.New("boom")
	if _, err := c.Fetch(context.Background(), "k", func(context.Context) (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if _, ok := c.Peek("k"); ok {
		t.Fatalf("error result cached")
	}
	v, err := c.Fetch(context.Background(), "k", func(context.Context) (any, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("v=%v err=%v", v, err)
	}
}

func TestCache_StaleRevalidateErrorKeepsValue(t *testing.T) {
	c, clk := newClockedCache(time.Second)
	_, _ = c.Fetch(context.Background(), "k", func(context.Context) (any, error) { return "v1", nil })
	clk.advance(time.Hour)
	v, err := c.Fetch(context.Background(), "k", func(context.Context) (any, error) { return nil, errors.New("offline") })
	c.Wait()
	if err != nil || v != "v1" {
		t.Fatalf("v=%v err=%v", v, err)
	}
	if got, _ := c.Peek("k"); got != "v1" {
		t.Fatalf("stale value lost: %v", got)
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c, _ := newClockedCache(time.Minute)
	for _, k := range []string{"products?page=1", "products?page=2", "testimonials"} {
		k := k
		_, _ = c.Fetch(context.Background(), k, func(context.Context) (any, error) { return k, nil })
	}
	if n := c.Invalidate("products?"); n != 2 {
		t.Fatalf("invalidated=%d", n)
	}
	if _, ok := c.Peek("products?page=1"); ok {
		t.Fatalf("page 1 survived")
	}
	if _, ok := c.Peek("testimonials"); !ok {
		t.Fatalf("unrelated key dropped")
	}
}

func TestCache_InvalidateDuringFetchDiscardsResult(t *testing.T) {
	c, _ := newClockedCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan any)
	go func() {
		v, _ := c.Fetch(context.Background(), "products?page=1", func(context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- v
	}()
	<-started
	c.Invalidate("products?")
	close(release)

	if v := <-done; v != "old" {
		t.Fatalf("caller gets its own result, got %v", v)
	}
	if _, ok := c.Peek("products?page=1"); ok {
		t.Fatalf("result fetched before invalidation was stored")
	}
}

func TestCache_LoadStateDoesNotOutliveLoads(t *testing.T) {
	c, _ := newClockedCache(time.Minute)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		k := fmt.Sprintf("products?q=%d", i)
		_, _ = c.Fetch(ctx, k, func(context.Context) (any, error) { return k, nil })
		c.Invalidate(k)
	}
	_, _ = c.Fetch(ctx, "broken", func(context.Context) (any, error) { return nil, errors.New("down") })

	// an invalidation during a fetch still discards it, then the state goes
	started, release := make(chan struct{}), make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Fetch(ctx, "products?page=1", func(context.Context) (any, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()
	<-started
	c.mu.Lock()
	inFlight := len(c.loads)
	c.mu.Unlock()
	if inFlight != 1 {
		t.Fatalf("load states during fetch = %d, want 1", inFlight)
	}
	c.Invalidate("products?")
	close(release)
	<-done

	if _, ok := c.Peek("products?page=1"); ok {
		t.Fatalf("result fetched before invalidation was stored")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.loads) != 0 {
		t.Fatalf("load states left behind = %d", len(c.loads))
	}
}

func TestGet_Typed(t *testing.T) {
	c := NewCache(time.Minute)
	n, err := Get(context.Background(), c, "n", func(context.Context) (int, error) { return 42, nil })
	if err != nil || n != 42 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	s, err := Get(context.Background(), c, "s", func(context.Context) ([]string, error) { return nil, errors.New("x") })
	if err == nil || s != nil {
		t.Fatalf("s=%v err=%v", s, err)
	}
}
