// Package health serves the standard gRPC health service for the node.
//
// Each pipeline is a named service. The empty service name reports the node
// as a whole: SERVING only while every registered pipeline is serving.
package health

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server tracks pipeline status and exposes it over gRPC.
type Server struct {
	hs *health.Server

	mu        sync.Mutex
	pipelines map[string]bool
}

// NewServer registers pipelines as NOT_SERVING.
func NewServer(pipelines ...string) *Server {
	s := &Server{hs: health.NewServer(), pipelines: make(map[string]bool, len(pipelines))}
	for _, p := range pipelines {
		s.pipelines[p] = false
		s.hs.SetServingStatus(p, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	s.hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetServing records a pipeline's status. Its signature matches
// node.Config.OnStatus.
func (s *Server) SetServing(pipeline string, serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines[pipeline] = serving
	s.hs.SetServingStatus(pipeline, toStatus(serving))

	all := len(s.pipelines) > 0
	for _, ok := range s.pipelines {
		all = all && ok
	}
	s.hs.SetServingStatus("", toStatus(all))
}

// Status returns the current status of a service; "" is the whole node.
func (s *Server) Status(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled. On cancellation every service
// is set NOT_SERVING before the server stops.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.hs)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[health] gRPC health service listening on %s", lis.Addr())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.hs.Shutdown()
	srv.GracefulStop()
	log.Printf("[health] gRPC health service stopped")
	return nil
}

func toStatus(serving bool) healthpb.HealthCheckResponse_ServingStatus {
	if serving {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
