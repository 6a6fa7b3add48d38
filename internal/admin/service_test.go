package admin

import (
	"context"
	"errors"
	"testing"
)

func TestGetStatusHealthyWhenPingSucceeds(t *testing.T) {
	s := NewAdapterService(
		func() map[string]interface{} { return map[string]interface{}{"active_connections": int64(0)} },
		func() map[string]interface{} { return map[string]interface{}{"blocked_count": int64(0)} },
		func(ctx context.Context) error { return nil },
		nil,
		nil,
	)

	status, err := s.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", status["status"])
	}
}

func TestGetStatusDegradedWhenPingFails(t *testing.T) {
	s := NewAdapterService(nil, nil, func(ctx context.Context) error { return errors.New("boom") }, nil, nil)

	status, _ := s.GetStatus(context.Background())
	if status["status"] != "degraded" {
		t.Errorf("expected degraded status, got %v", status["status"])
	}
}

func TestShutdownInvokesCancel(t *testing.T) {
	called := false
	cancel := func() { called = true }

	s := NewAdapterService(nil, nil, nil, cancel, nil)
	if err := s.Shutdown(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected cancel to be invoked")
	}
}

func TestHealthCheckReportsStoreFailure(t *testing.T) {
	s := NewAdapterService(nil, nil, func(ctx context.Context) error { return errors.New("down") }, nil, nil)

	status, err := s.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected error from HealthCheck")
	}
	if status != "unhealthy" {
		t.Errorf("expected unhealthy, got %q", status)
	}
}
