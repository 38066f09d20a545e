// Package grpc serves the standard grpc.health.v1 service, reporting SERVING
// only while the database answers pings.
package grpc

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/toolsascode/restorm/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultInterval is the time between two database pings
const DefaultInterval = 10 * time.Second

// Pinger checks a dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is a gRPC server exposing the health service
type Server struct {
	server   *grpc.Server
	health   *health.Server
	pinger   Pinger
	service  string
	interval time.Duration

	mu      sync.Mutex
	serving bool
	stop    context.CancelFunc
	done    chan struct{}
}

// NewServer creates a health server for service. Both "" and service report the database state.
func NewServer(pinger Pinger, service string, interval time.Duration) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := &Server{
		server:   grpc.NewServer(),
		health:   health.NewServer(),
		pinger:   pinger,
		service:  service,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	if s.service != "" {
		s.health.SetServingStatus(s.service, status)
	}
}

// Update pings the database once and publishes the result
func (s *Server) Update(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	err := s.pinger.Ping(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		if s.serving {
			logger.Warnf("gRPC health: database ping failed: %v", err)
		}
		s.serving = false
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	default:
		if !s.serving {
			logger.Debug("gRPC health: serving")
		}
		s.serving = true
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
	}
}

// Watch updates the status every interval until ctx is done
func (s *Server) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Update(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Update(ctx)
		}
	}
}

// Serve starts the status watcher and serves on lis until Stop
func (s *Server) Serve(lis net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.stop = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.Watch(ctx)
	}()

	logger.Infof("Starting gRPC health server on %s", lis.Addr())
	return s.server.Serve(lis)
}

// Stop marks every service NOT_SERVING and stops the server gracefully
func (s *Server) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	s.health.Shutdown()
	s.server.GracefulStop()
}
