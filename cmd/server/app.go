package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/partnerdesk/internal/agent"
	"github.com/ashureev/partnerdesk/internal/config"
	"github.com/ashureev/partnerdesk/internal/store"
)

// app holds the dependencies shared by the serve and ask commands.
type app struct {
	cfg     *config.Config
	repo    *store.SQLStore
	convLog agent.ConversationLogger
	service *agent.Service
}

func newApp(ctx context.Context, cfg *config.Config, convLogCfg config.ConversationLogConfig) (*app, error) {
	policy, err := store.ParsePolicy(cfg.Database.Policy)
	if err != nil {
		return nil, err
	}

	repo, err := store.Open(store.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.URL,
		Path:   cfg.Database.Path,
		Policy: policy,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}
	slog.Info("database connected", "driver", repo.Driver(), "policy", policy)

	assistant, err := agent.NewOpenAIAssistant(cfg.OpenAI, slog.Default())
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	convLog, err := agent.NewConversationLogger(convLogCfg, slog.Default())
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("initialize conversation logger: %w", err)
	}

	poller := agent.Poller{
		Interval:    cfg.Poll.Interval,
		MaxAttempts: cfg.Poll.MaxAttempts,
		Logger:      slog.Default(),
	}
	service := agent.NewService(assistant, poller, repo, convLog)
	service.Logger = poller.Logger

	return &app{
		cfg:     cfg,
		repo:    repo,
		convLog: convLog,
		service: service,
	}, nil
}

func (a *app) Close() {
	if err := a.convLog.Close(); err != nil {
		slog.Warn("failed to close conversation logger", "error", err)
	}
	if err := a.repo.Close(); err != nil {
		slog.Error("failed to close repository", "error", err)
	}
}
