package health

import (
	"context"
	"errors"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/salahayoub/bonsai/pkg/node"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start health server: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func check(t *testing.T, addr string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := Check(ctx, addr)
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	return st
}

// TestServer_FollowsStatus verifies only RUNNING reports SERVING.
func TestServer_FollowsStatus(t *testing.T) {
	s := newTestServer(t)

	if got := check(t, s.Addr()); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("Expected NOT_SERVING before start, got %v", got)
	}

	s.Observe(node.Status{Kind: node.StatusRunning})
	if got := check(t, s.Addr()); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("Expected SERVING while running, got %v", got)
	}

	s.Observe(node.Status{Kind: node.StatusFailed, Err: errors.New("boom")})
	if got := check(t, s.Addr()); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("Expected NOT_SERVING after failure, got %v", got)
	}
}

// TestServer_CloseIdempotent verifies Close can be called twice and that
// Observe after Close is ignored.
func TestServer_CloseIdempotent(t *testing.T) {
	s, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start health server: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}
	s.Observe(node.Status{Kind: node.StatusRunning})
}

// TestCheck_Unreachable verifies a closed server yields an error.
func TestCheck_Unreachable(t *testing.T) {
	s, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start health server: %v", err)
	}
	addr := s.Addr()
	_ = s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := Check(ctx, addr); err == nil {
		t.Fatal("Expected error from closed server")
	}
}
