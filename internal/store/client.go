// Package store implements the narrow key/value capability set the rest of
// the adapter consumes from the Redis-shaped backing store:
// GET, GETDEL, SCAN, INCR, EXPIRE, plus a startup PING probe.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Client is the capability set the rest of the adapter is allowed to use
// against the backing store. Keeping it narrow (rather than exposing
// *redis.Client directly) makes the invariant that the adapter never
// writes to user or token namespaces enforceable by construction:
// callers outside this package cannot issue SET or DEL.
type Client interface {
	// Get returns the value stored at key, and false if the key does not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// GetDel atomically reads and removes key in a single round trip,
	// returning false if the key did not exist. This is the primitive
	// single-use token consumption needs: a non-atomic GET-then-DEL
	// would let two concurrent readers both see the token as valid.
	GetDel(ctx context.Context, key string) (value string, ok bool, err error)

	// Scan iterates the keyspace matching pattern using Redis's cursor
	// protocol. A cursor of 0 starts a new scan; a returned cursor of 0
	// indicates iteration is complete.
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) (keys []string, nextCursor uint64, err error)

	// Incr atomically increments key and returns its new value, creating
	// the key at 1 if it did not exist.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets a TTL on key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping verifies connectivity to the backing store.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close() error
}

// RedisClient is the production Client backed by a pooled go-redis
// connection, sized to the concurrency of the front end.
type RedisClient struct {
	rdb    *redis.Client
	logger *logrus.Logger
}

// Options configures the pooled Redis connection.
type Options struct {
	URL      string
	PoolSize int
	Logger   *logrus.Logger
}

// NewRedisClient parses a redis://host:port[/db] connection string and opens
// a pooled client, performing a startup PING probe. A failed probe is a
// startup error: the caller is expected to exit(1) on a non-nil error here.
func NewRedisClient(ctx context.Context, opts Options) (*RedisClient, error) {
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis-url %q: %w", opts.URL, err)
	}

	if opts.PoolSize > 0 {
		parsed.PoolSize = opts.PoolSize
	}

	rdb := redis.NewClient(parsed)

	c := &RedisClient{rdb: rdb, logger: opts.Logger}

	if err := c.Ping(ctx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("backing store unreachable: %w", err)
	}

	return c, nil
}

func (c *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		c.logConnErr("GET", err)
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisClient) GetDel(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		c.logConnErr("GETDEL", err)
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisClient) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	keys, next, err := c.rdb.Scan(ctx, cursor, pattern, count).Result()
	if err != nil {
		c.logConnErr("SCAN", err)
		return nil, 0, err
	}
	return keys, next, nil
}

func (c *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.logConnErr("INCR", err)
		return 0, err
	}
	return n, nil
}

func (c *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		c.logConnErr("EXPIRE", err)
		return err
	}
	return nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.logConnErr("PING", err)
		return err
	}
	return nil
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

func (c *RedisClient) logConnErr(op string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"operation": op,
		"error":     err,
	}).Error("redis_connection_error")
}
