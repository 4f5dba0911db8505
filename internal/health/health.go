// Package health serves the standard grpc.health.v1 service and keeps it in
// step with the evaluation loop.
package health

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patruff/moltapp-sub001/pkg/i18n"
)

// ServiceName is the health check name of the evaluation loop. The empty
// service name reports the same status.
const ServiceName = "triggers.Engine"

// RunState reports whether the evaluation loop is subscribed to the feed.
type RunState interface {
	Running() bool
}

// Server is a gRPC server exposing only the health service.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	engine   RunState
	interval time.Duration
}

// New creates a health server polling engine every interval.
func New(engine RunState, interval time.Duration) *Server {
	if interval <= 0 {
		interval = time.Second
	}
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		engine:   engine,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Sync publishes the current loop state once.
func (s *Server) Sync() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.engine != nil && s.engine.Running() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.set(status)
	return status
}

// Watch syncs the loop state until ctx is done.
func (s *Server) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := s.Sync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cur := s.Sync(); cur != last {
				log.Printf("💓 "+i18n.M().HealthChanged, cur)
				last = cur
			}
		}
	}
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// ListenAndServe listens on addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("💓 "+i18n.M().GRPCListening, addr)
	return s.Serve(lis)
}

// Stop flips every service to NOT_SERVING and drains the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
