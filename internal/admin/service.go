package admin

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// StatsProvider is the shape through which wire.Server and
// internal/security.Checker surface their own counters to the admin plane
// without admin needing to import their concrete types. Both are passed
// in as plain functions and wrapped by statsMapProvider.
type StatsProvider interface {
	Stats() map[string]interface{}
}

// statsMapProvider adapts the differently-named GetStats() methods its
// collaborators already expose into the single StatsProvider shape.
type statsMapProvider func() map[string]interface{}

func (f statsMapProvider) Stats() map[string]interface{} { return f() }

// AdapterService implements Service for the MySQL-to-Redis adapter.
type AdapterService struct {
	connStats    StatsProvider
	securityStat StatsProvider
	ping         func(ctx context.Context) error
	cancel       context.CancelFunc
	logger       *logrus.Logger
	startTime    time.Time
}

// NewAdapterService constructs an AdapterService.
//
//   - connStats reports connection-admission pool occupancy (wire.Server.Stats).
//   - securityStats reports the defense-in-depth scanner's counters
//     (security.Checker.GetStats).
//   - ping probes the backing store (store.Client.Ping) for HealthCheck.
//   - cancel triggers graceful shutdown of the owning process.
func NewAdapterService(
	connStats func() map[string]interface{},
	securityStats func() map[string]interface{},
	ping func(ctx context.Context) error,
	cancel context.CancelFunc,
	logger *logrus.Logger,
) *AdapterService {
	return &AdapterService{
		connStats:    statsMapProvider(connStats),
		securityStat: statsMapProvider(securityStats),
		ping:         ping,
		cancel:       cancel,
		logger:       logger,
		startTime:    time.Now(),
	}
}

func (s *AdapterService) GetStatus(ctx context.Context) (map[string]interface{}, error) {
	status := map[string]interface{}{
		"module_type": "mysql-redis-adapter",
		"status":      "healthy",
		"uptime":      time.Since(s.startTime).Seconds(),
	}
	if err := s.pingStore(ctx); err != nil {
		status["status"] = "degraded"
		status["backing_store_error"] = err.Error()
	}
	return status, nil
}

// Reload is a no-op: the adapter's configuration surface (port, rate
// limits, scan limit) is read once at startup and nothing here
// currently supports live mutation. It exists to satisfy the admin
// interface's full contract.
func (s *AdapterService) Reload(ctx context.Context, graceful bool) error {
	if s.logger != nil {
		s.logger.WithField("graceful", graceful).Info("reload requested, configuration is load-once")
	}
	return nil
}

// Shutdown cancels the root context, unwinding ListenAndServe loops.
func (s *AdapterService) Shutdown(ctx context.Context, graceful bool) error {
	if s.logger != nil {
		s.logger.WithField("graceful", graceful).Info("shutdown requested via admin plane")
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *AdapterService) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{
		"uptime": time.Since(s.startTime).Seconds(),
	}
	if s.connStats != nil {
		stats["connections"] = s.connStats.Stats()
	}
	if s.securityStat != nil {
		stats["security"] = s.securityStat.Stats()
	}
	return stats, nil
}

func (s *AdapterService) HealthCheck(ctx context.Context) (string, error) {
	if err := s.pingStore(ctx); err != nil {
		return "unhealthy", err
	}
	return "healthy", nil
}

func (s *AdapterService) pingStore(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}
