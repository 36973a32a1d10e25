package resolve

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"netscope/internal/classify"
	"netscope/internal/config"
)

func newTestResolver(t *testing.T, cacheSize int, lookup LookupFunc) *Resolver {
	t.Helper()
	cfg := config.DNSConfig{Timeout: "2s", CacheSize: cacheSize}
	r, err := New(cfg, classify.New(config.DefaultCategories()), lookup, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestResolveCachesPositiveResult(t *testing.T) {
	var calls atomic.Int64
	r := newTestResolver(t, 10, func(ctx context.Context, ip string) (string, bool) {
		calls.Add(1)
		return "movies.netflix.com", true
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		host, ok := r.Resolve(ctx, "198.51.100.7")
		if !ok || host != "movies.netflix.com" {
			t.Fatalf("Resolve() = %q, %v", host, ok)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("lookup called %d times, want 1", got)
	}

	stats := r.CacheStats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("CacheStats() = %+v, want 2 hits / 1 miss", stats)
	}
}

func TestResolveCachesNegativeResult(t *testing.T) {
	var calls atomic.Int64
	r := newTestResolver(t, 10, func(ctx context.Context, ip string) (string, bool) {
		calls.Add(1)
		return "", false
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, ok := r.Resolve(ctx, "203.0.113.9"); ok {
			t.Fatal("Resolve() ok = true, want false")
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("lookup called %d times, want 1 (negative result not cached)", got)
	}
}

func TestResolveEvictsBeyondCapacity(t *testing.T) {
	var calls atomic.Int64
	r := newTestResolver(t, 2, func(ctx context.Context, ip string) (string, bool) {
		calls.Add(1)
		return "host-" + ip, true
	})

	ctx := context.Background()
	r.Resolve(ctx, "192.0.2.1")
	r.Resolve(ctx, "192.0.2.2")
	r.Resolve(ctx, "192.0.2.3") // evicts 192.0.2.1
	r.Resolve(ctx, "192.0.2.1") // must look up again

	if got := calls.Load(); got != 4 {
		t.Errorf("lookup called %d times, want 4", got)
	}
	if size := r.CacheStats().Size; size != 2 {
		t.Errorf("cache size = %d, want 2", size)
	}
}

func TestResolveHonoursTimeout(t *testing.T) {
	cfg := config.DNSConfig{Timeout: "50ms", CacheSize: 10}
	lookup := func(ctx context.Context, ip string) (string, bool) {
		<-ctx.Done()
		return "", false
	}
	r, err := New(cfg, classify.New(nil), lookup, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	start := time.Now()
	_, ok := r.Resolve(context.Background(), "203.0.113.50")
	elapsed := time.Since(start)

	if ok {
		t.Error("Resolve() ok = true, want false on timeout")
	}
	if elapsed > time.Second {
		t.Errorf("Resolve() took %v, want prompt return after 50ms timeout", elapsed)
	}
}

func TestResolveAndCategorize(t *testing.T) {
	r := newTestResolver(t, 10, func(ctx context.Context, ip string) (string, bool) {
		if ip == "198.51.100.7" {
			return "movies.netflix.com", true
		}
		return "", false
	})

	ctx := context.Background()
	host, ok, category := r.ResolveAndCategorize(ctx, "198.51.100.7")
	if !ok || host != "movies.netflix.com" || category != "Streaming" {
		t.Errorf("ResolveAndCategorize() = %q, %v, %q", host, ok, category)
	}

	_, ok, category = r.ResolveAndCategorize(ctx, "203.0.113.1")
	if ok || category != "Other" {
		t.Errorf("unresolved: ok=%v category=%q, want false, Other", ok, category)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	lookup := func(ctx context.Context, ip string) (string, bool) { return "", false }

	_, err := New(config.DNSConfig{Timeout: "soon", CacheSize: 10}, classify.New(nil), lookup, zap.NewNop())
	if err == nil {
		t.Error("New() with bad timeout succeeded, want error")
	}

	_, err = New(config.DNSConfig{Timeout: "1s", CacheSize: 0}, classify.New(nil), lookup, zap.NewNop())
	if err == nil {
		t.Error("New() with zero cache size succeeded, want error")
	}
}
