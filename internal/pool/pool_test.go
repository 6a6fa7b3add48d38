package pool

import (
	"context"
	"testing"
	"time"
)

func TestAcquireReleaseTracksOccupancy(t *testing.T) {
	p := NewConnPool(2, nil)
	ctx := context.Background()

	if !p.Acquire(ctx) {
		t.Fatal("first acquire should succeed")
	}
	if !p.Acquire(ctx) {
		t.Fatal("second acquire should succeed")
	}

	stats := p.Stats()
	if stats["active_connections"].(int64) != 2 {
		t.Errorf("expected 2 active, got %v", stats["active_connections"])
	}

	p.Release()
	stats = p.Stats()
	if stats["active_connections"].(int64) != 1 {
		t.Errorf("expected 1 active after release, got %v", stats["active_connections"])
	}
}

func TestAcquireBlocksWhenFull(t *testing.T) {
	p := NewConnPool(1, nil)
	ctx := context.Background()

	if !p.Acquire(ctx) {
		t.Fatal("first acquire should succeed")
	}

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if p.Acquire(shortCtx) {
		t.Error("acquire should have blocked until context cancellation")
	}
}
