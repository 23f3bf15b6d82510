// Package grpcserver builds the gRPC listener every service exposes next to its
// HTTP API: health, reflection, tracing, and the shared interceptor chain.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/tair/commerce-core/pkg/httpserver"
	"github.com/tair/commerce-core/pkg/logger"
)

// Options configures a server
type Options struct {
	// Validator enables the auth interceptor when set
	Validator     httpserver.TokenValidator
	PublicMethods []string
	AdminMethods  []string
}

// Server is a gRPC server with its health service
type Server struct {
	*grpc.Server
	Health *health.Server
}

// New creates a server with health and reflection registered. The overall health
// status starts as NOT_SERVING until a watcher or the caller sets it.
func New(opts Options) *Server {
	interceptors := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor,
		MetricsInterceptor,
		LoggingInterceptor,
	}
	if opts.Validator != nil {
		interceptors = append(interceptors, AuthInterceptor(opts.Validator, opts.PublicMethods, opts.AdminMethods))
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	// Register reflection service (for grpcurl and grpc tools)
	reflection.Register(srv)

	return &Server{Server: srv, Health: healthServer}
}

// WatchDependency pings dep every interval and mirrors the result into the overall
// health status until ctx is done
func (s *Server) WatchDependency(ctx context.Context, dep httpserver.Pinger, interval time.Duration) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		if err := dep.PingContext(pingCtx); err != nil {
			logger.Warn(ctx).Err(err).Msg("Dependency check failed, reporting NOT_SERVING")
			s.Health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		s.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// Serve listens on port until ctx is cancelled, then stops gracefully
func (s *Server) Serve(ctx context.Context, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis until ctx is cancelled
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
		errCh <- s.Server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.Health.Shutdown()
		s.GracefulStop()
		return nil
	}
}

// Dial opens a traced client connection to address
func Dial(address string, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, extra...)

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", address, err)
	}
	return conn, nil
}
