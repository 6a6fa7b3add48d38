// Package admin exposes a gRPC health/status plane alongside the MySQL
// wire listener: a self-contained health server with no protobuf
// codegen, a locally-defined service interface plus the standard
// grpc/health and grpc/reflection packages.
package admin

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// Service is the set of operations the admin plane exposes. It has no
// generated stub because nothing outside this process calls it over
// the wire today; the interface exists so Server and AdapterService
// stay decoupled and independently testable.
type Service interface {
	GetStatus(ctx context.Context) (map[string]interface{}, error)
	Reload(ctx context.Context, graceful bool) error
	Shutdown(ctx context.Context, graceful bool) error
	GetStats(ctx context.Context) (map[string]interface{}, error)
	HealthCheck(ctx context.Context) (string, error)
}

// Server hosts the gRPC health-check service and reflection alongside
// Service, bound to its own listen address independent of the MySQL
// wire port.
type Server struct {
	address      string
	grpcServer   *grpc.Server
	healthServer *health.Server
	service      Service
	logger       *logrus.Logger
	listener     net.Listener
	mu           sync.RWMutex
	running      bool
}

// NewServer constructs an admin Server bound to address (host:port).
func NewServer(address string, service Service, logger *logrus.Logger) *Server {
	return &Server{
		address: address,
		service: service,
		logger:  logger,
	}
}

// Start binds the listener and serves until Stop is called. It blocks;
// callers typically run it in its own goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("admin server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.listener = listener

	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     15 * time.Minute,
		MaxConnectionAge:      30 * time.Minute,
		MaxConnectionAgeGrace: 5 * time.Second,
		Time:                  5 * time.Second,
		Timeout:               1 * time.Second,
	}
	kaEnforcementPolicy := keepalive.EnforcementPolicy{
		MinTime:             5 * time.Second,
		PermitWithoutStream: true,
	}

	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(kaParams),
		grpc.KeepaliveEnforcementPolicy(kaEnforcementPolicy),
		grpc.MaxRecvMsgSize(16 * 1024 * 1024),
		grpc.MaxSendMsgSize(16 * 1024 * 1024),
	}
	s.grpcServer = grpc.NewServer(opts...)

	s.healthServer = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.healthServer)
	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.healthServer.SetServingStatus("mysqlredisd.Adapter", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(s.grpcServer)

	s.running = true
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.WithField("address", s.address).Info("admin server starting")
	}

	if err := s.grpcServer.Serve(listener); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("admin server error: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the gRPC server, forcing a stop after 30s.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.healthServer != nil {
		s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		s.healthServer.SetServingStatus("mysqlredisd.Adapter", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(30 * time.Second):
		s.grpcServer.Stop()
	}

	if s.listener != nil {
		s.listener.Close()
	}

	s.running = false
	return nil
}

// IsRunning reports whether Start has completed its setup phase.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Address returns the bound listen address.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.address
}
