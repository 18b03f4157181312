package limits

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int) *AttemptLimiter {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewAttemptLimiter(client, "login", limit, time.Minute)
}

func TestAttemptLimiterEnforcesLimit(t *testing.T) {
	limiter := newTestLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "a@b.id")
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	ok, err := limiter.Allow(ctx, "a@b.id")
	if err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	if ok {
		t.Fatal("third attempt should be denied")
	}
}

func TestAttemptLimiterKeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t, 1)
	ctx := context.Background()

	if ok, _ := limiter.Allow(ctx, "a@b.id"); !ok {
		t.Fatal("first key should be allowed")
	}
	if ok, _ := limiter.Allow(ctx, "other@b.id"); !ok {
		t.Fatal("second key should be unaffected by the first")
	}
	if ok, _ := limiter.Allow(ctx, "a@b.id"); ok {
		t.Fatal("first key should now be denied")
	}
}

func TestAttemptLimiterNilAllowsEverything(t *testing.T) {
	var limiter *AttemptLimiter
	ok, err := limiter.Allow(context.Background(), "a@b.id")
	if err != nil || !ok {
		t.Fatalf("nil limiter should allow, got ok=%v err=%v", ok, err)
	}
}
