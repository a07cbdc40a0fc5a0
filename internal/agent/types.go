// Package agent turns chat messages into assistant runs and assembles their
// replies, executing any SQL the assistant proposes.
package agent

import (
	"github.com/ashureev/partnerdesk/internal/domain"
)

// ChatRequest is the inbound chat payload.
type ChatRequest struct {
	Message string `json:"message"`
}

// RunHandle identifies a started run on a fresh thread.
type RunHandle struct {
	ThreadID string
	RunID    string
}

// PollResult is the outcome of waiting on a run.
type PollResult struct {
	Status   domain.RunStatus
	Attempts int
	Detail   string // last_error message reported by the model service, if any
}

// socketFrame is one server frame on the chat WebSocket.
type socketFrame struct {
	Type string `json:"type"`
	*domain.ChatResponse
	Error  string `json:"error,omitempty"`
	Status int    `json:"status,omitempty"`
}

const (
	frameResponse = "response"
	frameError    = "error"
)
