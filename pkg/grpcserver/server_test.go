package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/tair/commerce-core/pkg/auth"
	"github.com/tair/commerce-core/pkg/httpserver"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func startServer(t *testing.T, srv *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.ServeListener(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return healthpb.NewHealthClient(conn)
}

func TestHealthFollowsDependency(t *testing.T) {
	srv := New(Options{Validator: auth.NewTokenValidator("secret")})
	client := startServer(t, srv)
	ctx := context.Background()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status, "health is public and starts not serving")

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	go srv.WatchDependency(watchCtx, pinger{}, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)
}

func TestHealthReportsFailingDependency(t *testing.T) {
	srv := New(Options{})
	srv.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	client := startServer(t, srv)

	watchCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go srv.WatchDependency(watchCtx, pinger{err: errors.New("db down")}, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)
}

func TestAuthInterceptor(t *testing.T) {
	validator := auth.NewTokenValidator("secret")
	interceptor := AuthInterceptor(validator, []string{"/svc/Public"}, []string{"/svc/Admin"})

	var actor uint
	handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
		actor = httpserver.ActorID(ctx)
		return "ok", nil
	}
	withToken := func(role string) context.Context {
		tok, err := validator.GenerateToken(11, "u", role, time.Hour)
		require.NoError(t, err)
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tok))
	}

	tests := []struct {
		name   string
		ctx    context.Context
		method string
		code   codes.Code
	}{
		{"public method", context.Background(), "/svc/Public", codes.OK},
		{"health method", context.Background(), "/grpc.health.v1.Health/Check", codes.OK},
		{"no metadata", context.Background(), "/svc/Private", codes.Unauthenticated},
		{"bad token", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer nope")), "/svc/Private", codes.Unauthenticated},
		{"customer on private", withToken("customer"), "/svc/Private", codes.OK},
		{"customer on admin", withToken("customer"), "/svc/Admin", codes.PermissionDenied},
		{"admin on admin", withToken(httpserver.RoleAdmin), "/svc/Admin", codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := interceptor(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
	assert.Equal(t, uint(11), actor)
}

func TestRecoveryInterceptor(t *testing.T) {
	_, err := RecoveryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Boom"},
		func(context.Context, interface{}) (interface{}, error) {
			panic("boom")
		})
	assert.Equal(t, codes.Internal, status.Code(err))
}
