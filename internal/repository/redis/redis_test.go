package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestCounterSequence_ConcurrentNextIsUnique(t *testing.T) {
	client, _ := newTestRedis(t)
	seq := NewCounterSequence(client, "seq")

	const n = 25
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := repository.GetUnitID(context.Background(), seq, "orders", "Ord", 4)
			if err != nil {
				t.Errorf("GetUnitID: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[code] {
				t.Errorf("duplicate code %s", code)
			}
			seen[code] = true
		}()
	}
	wg.Wait()

	if len(seen) != n || !seen["Ord0001"] || !seen["Ord0025"] {
		t.Fatalf("unexpected codes %v", seen)
	}
}

func TestCounterSequence_Seed(t *testing.T) {
	client, server := newTestRedis(t)
	seq := NewCounterSequence(client, "seq")
	ctx := context.Background()

	if err := seq.Seed(ctx, "users", 10); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := seq.Seed(ctx, "users", 3); err != nil {
		t.Fatalf("Seed lower: %v", err)
	}
	got, err := seq.Next(ctx, "users")
	if err != nil || got != 11 {
		t.Fatalf("Next = %d, %v; want 11", got, err)
	}
	if v, _ := server.Get("seq:users"); v != "11" {
		t.Fatalf("stored value = %q", v)
	}
}

func TestPermissionCache_RoundTripAndInvalidate(t *testing.T) {
	client, server := newTestRedis(t)
	cache := NewPermissionCache(client, "perms")
	ctx := context.Background()

	perms := []domain.Permission{"order:view_own", "product:*"}
	if err := cache.Set(ctx, "u1", perms, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Set(ctx, "u2", perms, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := cache.Get(ctx, "u1")
	if err != nil || !ok || len(got) != 2 || got[1] != "product:*" {
		t.Fatalf("Get = %v, %v, %v", got, ok, err)
	}
	if ttl := server.TTL("perms:u1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := cache.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "u1"); ok {
		t.Fatalf("expected miss after invalidate")
	}

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate all: %v", err)
	}
	if server.Exists("perms:u2") {
		t.Fatalf("expected every entry dropped")
	}

	server.FastForward(2 * time.Minute)
	if _, ok, err := cache.Get(ctx, "unknown"); ok || err != nil {
		t.Fatalf("expected clean miss, got %v %v", ok, err)
	}
}

func TestRateLimitRepository_SlidingWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl", TTL: time.Minute})
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for _, offset := range []time.Duration{0, 0, 10 * time.Second, 50 * time.Second} {
		if err := repo.RecordAttempt(ctx, "login:1.2.3.4", base.Add(offset)); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	ref := base.Add(55 * time.Second)
	n, err := repo.CountAttempts(ctx, "login:1.2.3.4", time.Minute, ref)
	if err != nil || n != 4 {
		t.Fatalf("CountAttempts = %d, %v; want 4", n, err)
	}

	ref = base.Add(65 * time.Second)
	if err := repo.TrimWindow(ctx, "login:1.2.3.4", time.Minute, ref); err != nil {
		t.Fatalf("TrimWindow: %v", err)
	}
	n, _ = repo.CountAttempts(ctx, "login:1.2.3.4", time.Minute, ref)
	if n != 2 {
		t.Fatalf("after trim = %d, want 2", n)
	}

	oldest, ok, err := repo.OldestAttempt(ctx, "login:1.2.3.4", time.Minute, ref)
	if err != nil || !ok || !oldest.Equal(base.Add(10*time.Second)) {
		t.Fatalf("OldestAttempt = %v, %v, %v", oldest, ok, err)
	}

	if _, err := repo.CountAttempts(ctx, "x", 0, ref); err == nil {
		t.Fatalf("expected error for zero window")
	}
}
