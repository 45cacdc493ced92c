package grpc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	grpcAdapter "gratitudeboard/internal/notes/adapters/grpc"
	"gratitudeboard/internal/notes/config"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func startServer(t *testing.T) (*grpcAdapter.Server, healthpb.HealthClient) {
	t.Helper()
	ctx := context.Background()

	server := grpcAdapter.New(&config.GRPCConfig{Host: "localhost", Port: 0})
	listener := bufconn.Listen(1 << 20)
	require.NoError(t, server.Serve(ctx, listener))
	t.Cleanup(func() { server.Stop(ctx) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return server, healthpb.NewHealthClient(conn)
}

func TestHealthReporter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server, client := startServer(t)
	store := &fakePinger{}
	reporter := grpcAdapter.NewHealthReporter(server, store, time.Hour)

	t.Run("serving when store answers", func(t *testing.T) {
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, reporter.Check(ctx))

		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: grpcAdapter.ServiceName})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

		resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	})

	t.Run("not serving when store is down", func(t *testing.T) {
		store.err = errors.New("connection refused")
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, reporter.Check(ctx))

		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: grpcAdapter.ServiceName})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
	})
}

func TestHealthReporterRunStopsOnCancel(t *testing.T) {
	server, _ := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := grpcAdapter.NewHealthReporter(server, &fakePinger{}, time.Millisecond).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartFailsOnBusyAddress(t *testing.T) {
	ctx := context.Background()
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	port := busy.Addr().(*net.TCPAddr).Port
	server := grpcAdapter.New(&config.GRPCConfig{Host: "127.0.0.1", Port: port})

	err = server.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), grpcAdapter.ErrListen)
}
