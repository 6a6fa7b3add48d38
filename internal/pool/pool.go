// Package pool provides a bounded connection-admission pool: accepted
// connections are admitted into a fixed number of concurrent task
// slots, set by the size passed to NewConnPool. There is no outbound
// backend to pool connections to here (the backing store is a single
// pooled Redis client managed by internal/store), so this is a
// semaphore with statistics rather than a pool of backend connections.
package pool

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"mysqlredisd/internal/metrics"
)

// ConnPool bounds how many connections may be served concurrently.
type ConnPool struct {
	slots   chan struct{}
	size    int
	active  int64
	total   int64
	logger  *logrus.Logger
}

// NewConnPool constructs a ConnPool admitting up to size concurrent
// connections.
func NewConnPool(size int, logger *logrus.Logger) *ConnPool {
	return &ConnPool{
		slots:  make(chan struct{}, size),
		size:   size,
		logger: logger,
	}
}

// Acquire blocks until a slot is free or ctx is cancelled, returning
// false in the latter case. Every successful Acquire must be paired
// with a Release.
func (p *ConnPool) Acquire(ctx context.Context) bool {
	select {
	case p.slots <- struct{}{}:
		atomic.AddInt64(&p.active, 1)
		atomic.AddInt64(&p.total, 1)
		metrics.ActiveConnections.Inc()
		return true
	case <-ctx.Done():
		return false
	}
}

// Release frees a slot acquired with Acquire.
func (p *ConnPool) Release() {
	select {
	case <-p.slots:
		atomic.AddInt64(&p.active, -1)
		metrics.ActiveConnections.Dec()
	default:
	}
}

// Stats reports current pool occupancy for the admin status plane.
func (p *ConnPool) Stats() map[string]interface{} {
	return map[string]interface{}{
		"active_connections": atomic.LoadInt64(&p.active),
		"total_admitted":     atomic.LoadInt64(&p.total),
		"pool_size":          p.size,
	}
}
