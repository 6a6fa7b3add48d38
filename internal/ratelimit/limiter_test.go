package ratelimit

import (
	"context"
	"testing"

	"mysqlredisd/internal/store"
)

func TestAllowWithinLimit(t *testing.T) {
	mem := store.NewMemoryClient()
	l := New(mem, 3, 60, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "1.2.3.4") {
			t.Fatalf("request %d unexpectedly denied", i)
		}
	}

	if l.Allow(ctx, "1.2.3.4") {
		t.Fatal("4th request should have exceeded the window limit")
	}
}

func TestAllowSeparateKeysIndependent(t *testing.T) {
	mem := store.NewMemoryClient()
	l := New(mem, 1, 60, nil)
	ctx := context.Background()

	if !l.Allow(ctx, "1.1.1.1") {
		t.Fatal("first request for 1.1.1.1 should be allowed")
	}
	if !l.Allow(ctx, "2.2.2.2") {
		t.Fatal("first request for 2.2.2.2 should be allowed, independent window")
	}
	if l.Allow(ctx, "1.1.1.1") {
		t.Fatal("second request for 1.1.1.1 should exceed its limit of 1")
	}
}

type errClient struct {
	store.Client
}

func (errClient) Incr(ctx context.Context, key string) (int64, error) {
	return 0, context.DeadlineExceeded
}

func TestAllowFailsOpenOnBackingStoreError(t *testing.T) {
	l := New(errClient{}, 1, 60, nil)
	if !l.Allow(context.Background(), "1.2.3.4") {
		t.Fatal("limiter must fail open when the backing store errors")
	}
}
