// Package probe exposes the standard gRPC health service, reporting SERVING
// while the data store answers pings.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ChatService is the service name reported alongside the overall ("") status.
const ChatService = "partnerdesk.Chat"

const (
	defaultCheckInterval = 15 * time.Second
	pingTimeout          = 2 * time.Second
	pingRetries          = 3
	pingBaseDelay        = 100 * time.Millisecond
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	db       Pinger
	interval time.Duration
}

// New creates a health server. A non-positive interval uses the default.
func New(db Pinger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		db:       db,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

// Watch checks the store immediately and then on every interval until ctx ends.
func (s *Server) Watch(ctx context.Context) {
	s.Check(ctx)

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		slog.Info("health watcher started", "interval", s.interval)

		for {
			select {
			case <-ticker.C:
				s.Check(ctx)
			case <-ctx.Done():
				slog.Info("health watcher shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Check pings the store and updates the reported status.
func (s *Server) Check(ctx context.Context) {
	if err := pingWithRetry(ctx, s.db); err != nil {
		slog.Warn("store unreachable, reporting NOT_SERVING", "error", err)
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ChatService, status)
}

// pingWithRetry retries transient ping failures with exponential backoff.
func pingWithRetry(ctx context.Context, db Pinger) error {
	var err error
	for i := 0; i < pingRetries; i++ {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.Ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if i == pingRetries-1 || ctx.Err() != nil {
			break
		}

		delay := pingBaseDelay * time.Duration(1<<i) // 100ms, 200ms
		slog.Debug("store ping failed, retrying", "attempt", i+1, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("ping store after %d attempts: %w", pingRetries, err)
}
