package agent

import (
	"context"
	"strings"

	"github.com/ashureev/partnerdesk/internal/domain"
)

// Assistant is the model service surface used by the orchestrator.
type Assistant interface {
	// CreateThread opens a fresh conversation.
	CreateThread(ctx context.Context) (*domain.Conversation, error)

	// PostMessage appends a user message to the thread.
	PostMessage(ctx context.Context, threadID, content string) error

	// StartRun asks the configured assistant to reply on the thread.
	StartRun(ctx context.Context, threadID string) (*domain.Run, error)

	// GetRun reads the current state of a run.
	GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error)

	// ListMessages returns thread messages, newest first.
	ListMessages(ctx context.Context, threadID string) ([]domain.Message, error)
}

// StartConversation creates a thread, posts message into it and starts a run.
// The first failing call aborts the sequence with a *StageError.
func StartConversation(ctx context.Context, a Assistant, message string) (RunHandle, error) {
	conv, err := a.CreateThread(ctx)
	if err != nil {
		return RunHandle{}, &StageError{Stage: StageThread, Err: err}
	}

	if err := a.PostMessage(ctx, conv.ThreadID, message); err != nil {
		return RunHandle{}, &StageError{Stage: StageMessage, Err: err}
	}

	run, err := a.StartRun(ctx, conv.ThreadID)
	if err != nil {
		return RunHandle{}, &StageError{Stage: StageRun, Err: err}
	}

	return RunHandle{ThreadID: conv.ThreadID, RunID: run.ID}, nil
}

// latestAssistantText returns the text of the first content item of the
// newest assistant message. messages must be ordered newest first.
func latestAssistantText(messages []domain.Message) (string, error) {
	for _, m := range messages {
		if m.Role != domain.MessageRoleAssistant {
			continue
		}
		if len(m.Content) == 0 {
			return "", &ProtocolError{Reason: "assistant message " + m.ID + " has no content"}
		}
		first := m.Content[0]
		if first.Type != "text" {
			return "", &ProtocolError{Reason: "assistant message " + m.ID + " starts with " + first.Type + " content"}
		}
		if strings.TrimSpace(first.Text) == "" {
			return "", &ProtocolError{Reason: "assistant message " + m.ID + " has empty text"}
		}
		return first.Text, nil
	}
	return "", &ProtocolError{Reason: "no assistant message in thread"}
}
