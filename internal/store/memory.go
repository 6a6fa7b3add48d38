package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryClient is an in-memory Client used by tests elsewhere in the
// adapter, standing in for a live Redis instance rather than reaching
// for a mocking framework.
type MemoryClient struct {
	mu     sync.Mutex
	values map[string]string
	expiry map[string]time.Time
}

// NewMemoryClient returns an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		values: make(map[string]string),
		expiry: make(map[string]time.Time),
	}
}

// Seed sets key to value with no expiry, for test setup.
func (m *MemoryClient) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// SeedTTL sets key to value with an expiry, for test setup.
func (m *MemoryClient) SeedTTL(key, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.expiry[key] = time.Now().Add(ttl)
}

func (m *MemoryClient) expireLocked(key string) {
	if exp, ok := m.expiry[key]; ok && time.Now().After(exp) {
		delete(m.values, key)
		delete(m.expiry, key)
	}
}

func (m *MemoryClient) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryClient) GetDel(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	v, ok := m.values[key]
	if ok {
		delete(m.values, key)
		delete(m.expiry, key)
	}
	return v, ok, nil
}

func (m *MemoryClient) Scan(_ context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := strings.TrimSuffix(pattern, "*")

	var all []string
	for k := range m.values {
		m.expireLocked(k)
	}
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			all = append(all, k)
		}
	}
	sort.Strings(all)

	start := int(cursor)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(count)
	if end > len(all) || count <= 0 {
		end = len(all)
	}

	next := uint64(end)
	if end >= len(all) {
		next = 0
	}

	return all[start:end], next, nil
}

func (m *MemoryClient) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	cur, _ := strconv.ParseInt(m.values[key], 10, 64)
	cur++
	m.values[key] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (m *MemoryClient) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return nil
	}
	m.expiry[key] = time.Now().Add(ttl)
	return nil
}

func (m *MemoryClient) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryClient) Close() error {
	return nil
}

var _ Client = (*MemoryClient)(nil)
