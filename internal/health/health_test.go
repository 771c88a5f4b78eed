package health

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func status(t *testing.T, s *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	st, err := s.Status(context.Background(), service)
	require.NoError(t, err)
	return st
}

func TestServer_OverallFollowsPipelines(t *testing.T) {
	s := NewServer("inertial", "lidar")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, s, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, s, "inertial"))

	s.SetServing("inertial", true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, s, "inertial"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, s, ""))

	s.SetServing("lidar", true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, s, ""))

	s.SetServing("lidar", false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, s, ""))
}

func TestServer_UnknownService(t *testing.T) {
	s := NewServer("inertial")
	_, err := s.Status(context.Background(), "nope")
	assert.Error(t, err)
}

func TestServer_ServeOverGRPC(t *testing.T) {
	s := NewServer("inertial")
	s.SetServing("inertial", true)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()
	resp, err := client.Check(callCtx, &healthpb.HealthCheckRequest{Service: ""})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, s, ""))
}
