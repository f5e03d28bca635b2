// Package health exposes the node state over the standard gRPC health
// checking protocol so supervisors can probe bonsai without scraping HTTP.
package health

import (
	"context"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/node"
)

// Service is the health service name reporting the node state. The empty
// service name reports the process itself, which is always SERVING.
const Service = "bonsai.node"

// Server serves grpc.health.v1 on its own listener.
type Server struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener

	mu     sync.Mutex
	last   healthpb.HealthCheckResponse_ServingStatus
	closed bool
}

// NewServer listens on addr and starts serving immediately. The node
// service starts as NOT_SERVING.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	s := &Server{
		server:   grpc.NewServer(),
		health:   health.NewServer(),
		listener: listener,
		last:     healthpb.HealthCheckResponse_NOT_SERVING,
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(Service, s.last)
	healthpb.RegisterHealthServer(s.server, s.health)

	go func() {
		_ = s.server.Serve(listener)
	}()

	logging.Info("health server listening", logging.Component("health"), "addr", s.Addr())
	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Observe maps the node status onto the service status. Only RUNNING is
// SERVING. Watchers are only notified on change.
func (s *Server) Observe(st node.Status) {
	want := healthpb.HealthCheckResponse_NOT_SERVING
	if st.Kind == node.StatusRunning {
		want = healthpb.HealthCheckResponse_SERVING
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || want == s.last {
		return
	}
	s.last = want
	s.health.SetServingStatus(Service, want)
}

// Close marks every service NOT_SERVING and stops the server gracefully.
// It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.health.Shutdown()
	s.server.GracefulStop()
	return nil
}

// Check asks the health server at addr for the node service status.
func Check(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
