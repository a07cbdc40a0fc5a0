// Package domain contains core domain types for the partnerdesk assistant.
package domain

import (
	"time"
)

// Conversation is the remote thread opened for a single chat request.
// It is never persisted or reused across requests.
type Conversation struct {
	ThreadID  string    `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RunStatus mirrors the lifecycle state reported by the model service.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"

	// RunStatusTimedOut is declared locally when the poll budget runs out.
	// The model service never reports it.
	RunStatusTimedOut RunStatus = "timed_out"
)

// IsTerminal reports whether no further transition can follow s.
// requires_action counts as terminal because tool outputs are never submitted.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled,
		RunStatusExpired, RunStatusIncomplete, RunStatusRequiresAction,
		RunStatusTimedOut:
		return true
	default:
		return false
	}
}

// Succeeded reports whether the run produced a usable reply.
func (s RunStatus) Succeeded() bool {
	return s == RunStatusCompleted
}

// Run is a read-only mirror of one reasoning invocation on a conversation.
type Run struct {
	ID          string    `json:"run_id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   string    `json:"last_error,omitempty"`
}

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// MessageContent is one content item of a conversation message.
// Text is only meaningful when Type is "text".
type MessageContent struct {
	Type string
	Text string
}

// Message is a conversation message as listed by the model service.
type Message struct {
	ID      string
	Role    MessageRole
	Content []MessageContent
}
