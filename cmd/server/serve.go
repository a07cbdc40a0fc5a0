package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/ashureev/partnerdesk/internal/agent"
	"github.com/ashureev/partnerdesk/internal/api"
	"github.com/ashureev/partnerdesk/internal/config"
	"github.com/ashureev/partnerdesk/internal/identity"
	"github.com/ashureev/partnerdesk/internal/middleware"
	"github.com/ashureev/partnerdesk/internal/probe"
	"github.com/ashureev/partnerdesk/internal/ratelimit"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfgFile)
		},
	}
}

//nolint:gocyclo // Startup wiring is intentionally sequential to keep dependency setup explicit.
func runServe(parent context.Context, cfgFile string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "model", cfg.OpenAI.Model,
		"poll_interval", cfg.Poll.Interval, "poll_max_attempts", cfg.Poll.MaxAttempts)

	a, err := newApp(ctx, cfg, cfg.ConversationLog)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	limiter, closeLimiter, err := newLimiter(ctx, cfg.RateLimit)
	if err != nil {
		slog.Error("failed to initialize rate limiter", "error", err)
		return err
	}
	defer closeLimiter()

	origins := []string{"*"}
	if !cfg.IsDevelopment() {
		origins = middleware.AllowedOrigins(cfg.FrontendURL)
	}

	baseHandler := api.NewHandler(a.repo, cfg)
	chatHandler := agent.NewHandler(a.service, agent.HandlerOptions{
		RateLimiter:   limiter,
		MaxBodySize:   cfg.MaxRequestBodySize,
		AllowedOrigin: cfg.FrontendURL,
		IsDev:         cfg.IsDevelopment(),
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(origins))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	baseHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)

	// No WriteTimeout: a chat request may legitimately wait for the whole poll budget.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	var health *probe.Server
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			slog.Error("failed to listen for gRPC health", "addr", cfg.GRPCHealthAddr, "error", err)
			return err
		}
		health = probe.New(a.repo, 0)
		health.Watch(ctx)
		go func() {
			slog.Info("gRPC health listening", "addr", cfg.GRPCHealthAddr)
			if err := health.Serve(lis); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		slog.Error("server failed", "error", err)
		return err
	}
	stop()

	slog.Info("shutting down gracefully...")

	if health != nil {
		health.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Poll.Budget()+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("server stopped successfully")
	return nil
}

// newLimiter picks the Redis limiter when REDIS_URL is set, else in-memory.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		m := ratelimit.NewMemory(cfg.RequestsPerWindow, cfg.WindowDuration)
		return m, m.Close, nil
	}
	r, err := ratelimit.NewRedis(ctx, cfg.RedisURL, cfg.RequestsPerWindow, cfg.WindowDuration)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("rate limiting via Redis", "requests", cfg.RequestsPerWindow, "window", cfg.WindowDuration)
	return r, func() {
		if err := r.Close(); err != nil {
			slog.Warn("failed to close redis limiter", "error", err)
		}
	}, nil
}
