// Package grpc serves the gRPC health protocol for the migration service so
// orchestrators can probe readiness the same way they probe other services.
package grpc

import (
	"context"
	"net"
	"sync"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/toolsascode/shift/internal/logger"
)

// ServiceName is the health service name reported next to the server-wide ""
const ServiceName = "shift.Migrations"

// DefaultProbeInterval is used when NewServer gets zero
const DefaultProbeInterval = 15 * time.Second

// CheckFunc probes the target database
type CheckFunc func(ctx context.Context) error

// Server is a gRPC server exposing grpc.health.v1
type Server struct {
	grpc     *gogrpc.Server
	health   *health.Server
	check    CheckFunc
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewServer creates a server. A nil check always reports SERVING.
func NewServer(check CheckFunc, interval time.Duration, opts ...gogrpc.ServerOption) *Server {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	opts = append(opts, gogrpc.ChainUnaryInterceptor(logUnary))

	s := &Server{
		grpc:     gogrpc.NewServer(opts...),
		health:   health.NewServer(),
		check:    check,
		interval: interval,
		stop:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	return s
}

// Probe runs the check once and publishes the result
func (s *Server) Probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		if err := s.check(ctx); err != nil {
			logger.Warnf("Health probe failed: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve probes periodically and serves lis until Stop
func (s *Server) Serve(lis net.Listener) error {
	s.Probe(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.interval)
				s.Probe(ctx)
				cancel()
			}
		}
	}()

	logger.Infof("gRPC server listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop marks the server NOT_SERVING and drains in-flight calls
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
	s.wg.Wait()
}

func logUnary(ctx context.Context, req interface{}, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.WithFields(map[string]interface{}{
		"method":   info.FullMethod,
		"duration": time.Since(start).String(),
	}).Debug("gRPC request")
	return resp, err
}
