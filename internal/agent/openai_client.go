package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/ashureev/partnerdesk/internal/config"
	"github.com/ashureev/partnerdesk/internal/domain"
)

// messagePageSize bounds the message listing; the reply is near the top.
const messagePageSize = 20

// OpenAIAssistant implements Assistant on the OpenAI Assistants API.
type OpenAIAssistant struct {
	client      openai.Client
	assistantID string
	model       string
	logger      *slog.Logger
}

// NewOpenAIAssistant builds a client for the configured assistant.
// SDK retries are disabled; a failed call surfaces as a stage failure.
func NewOpenAIAssistant(cfg config.OpenAIConfig, logger *slog.Logger) (*OpenAIAssistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.AssistantID == "" {
		return nil, fmt.Errorf("openai assistant id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIAssistant{
		client:      openai.NewClient(opts...),
		assistantID: cfg.AssistantID,
		model:       cfg.Model,
		logger:      logger,
	}, nil
}

// CreateThread opens an empty thread.
func (a *OpenAIAssistant) CreateThread(ctx context.Context) (*domain.Conversation, error) {
	thread, err := a.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	a.logger.Debug("thread created", "thread_id", thread.ID)
	return &domain.Conversation{
		ThreadID:  thread.ID,
		CreatedAt: time.Unix(thread.CreatedAt, 0).UTC(),
	}, nil
}

// PostMessage adds a user message to the thread.
func (a *OpenAIAssistant) PostMessage(ctx context.Context, threadID, content string) error {
	_, err := a.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(content),
		},
	})
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// StartRun starts the configured assistant on the thread.
func (a *OpenAIAssistant) StartRun(ctx context.Context, threadID string) (*domain.Run, error) {
	params := openai.BetaThreadRunNewParams{
		AssistantID: a.assistantID,
	}
	if a.model != "" {
		params.Model = shared.ChatModel(a.model)
	}

	run, err := a.client.Beta.Threads.Runs.New(ctx, threadID, params)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	a.logger.Debug("run started", "thread_id", threadID, "run_id", run.ID, "status", run.Status)
	return toDomainRun(run), nil
}

// GetRun reads the run's current status.
func (a *OpenAIAssistant) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	run, err := a.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return toDomainRun(run), nil
}

// ListMessages returns the newest page of thread messages, newest first.
func (a *OpenAIAssistant) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	page, err := a.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		Limit: openai.Int(messagePageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]domain.Message, 0, len(page.Data))
	for _, m := range page.Data {
		msg := domain.Message{
			ID:      m.ID,
			Role:    domain.MessageRole(m.Role),
			Content: make([]domain.MessageContent, 0, len(m.Content)),
		}
		for _, c := range m.Content {
			item := domain.MessageContent{Type: c.Type}
			if c.Type == "text" {
				item.Text = c.Text.Value
			}
			msg.Content = append(msg.Content, item)
		}
		out = append(out, msg)
	}
	return out, nil
}

func toDomainRun(run *openai.Run) *domain.Run {
	return &domain.Run{
		ID:          run.ID,
		ThreadID:    run.ThreadID,
		AssistantID: run.AssistantID,
		Status:      domain.RunStatus(run.Status),
		LastError:   run.LastError.Message,
	}
}

var _ Assistant = (*OpenAIAssistant)(nil)
