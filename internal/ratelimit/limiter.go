// Package ratelimit implements a per-IP fixed-window request limiter,
// backed by the same Redis instance the rest of the adapter reads from.
// It uses an increment-then-conditionally-expire pattern built atop an
// atomic INCR rather than a read-modify-write.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"mysqlredisd/internal/metrics"
	"mysqlredisd/internal/store"
)

// Limiter enforces a fixed count of allowed requests per key within a
// fixed window, which starts at the first request that opens it and
// ends when the counter's TTL expires.
type Limiter struct {
	client store.Client
	limit  int
	window time.Duration
	logger *logrus.Logger
}

// New constructs a Limiter. limit is the number of requests allowed per
// window; windowSeconds is the window's duration in seconds.
func New(client store.Client, limit int, windowSeconds int, logger *logrus.Logger) *Limiter {
	return &Limiter{
		client: client,
		limit:  limit,
		window: time.Duration(windowSeconds) * time.Second,
		logger: logger,
	}
}

// Allow reports whether a request from key (normally a client IP) is
// within its current window's budget. On any backing-store error it
// fails open so a degraded backing store never blocks a connection,
// and logs the degradation.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	n, err := l.client.Incr(ctx, redisKey)
	if err != nil {
		l.logDegraded("incr", key, err)
		return true
	}

	if n == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window); err != nil {
			l.logDegraded("expire", key, err)
		}
	}

	allowed := n <= int64(l.limit)
	if !allowed {
		metrics.RateLimitExceededTotal.Inc()
		l.logExceeded(key, n)
	}

	return allowed
}

func (l *Limiter) logExceeded(ip string, count int64) {
	if l.logger == nil {
		return
	}
	l.logger.WithFields(logrus.Fields{
		"ip":    ip,
		"count": count,
		"limit": l.limit,
	}).Warn("rate_limit_exceeded")
}

func (l *Limiter) logDegraded(op, key string, err error) {
	if l.logger == nil {
		return
	}
	l.logger.WithFields(logrus.Fields{
		"operation": op,
		"key":       key,
		"error":     err,
	}).Warn("rate_limit_degraded_fail_open")
}
