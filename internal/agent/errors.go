package agent

import (
	"errors"
	"fmt"

	"github.com/ashureev/partnerdesk/internal/domain"
)

// ErrEmptyMessage is returned when the inbound message is blank.
var ErrEmptyMessage = errors.New("message is required")

// Remote call stages.
const (
	StageThread   = "thread"
	StageMessage  = "message"
	StageRun      = "run"
	StageStatus   = "status"
	StageMessages = "messages"
)

// StageError reports a failed call to the model service.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("assistant %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RunError reports a run that reached a terminal status other than completed.
type RunError struct {
	Status   domain.RunStatus
	Attempts int
	Detail   string
}

func (e *RunError) Error() string {
	if e.Status == domain.RunStatusTimedOut {
		return fmt.Sprintf("assistant run timed out after %d status checks", e.Attempts)
	}
	if e.Detail != "" {
		return fmt.Sprintf("assistant run ended with status %s: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("assistant run ended with status %s", e.Status)
}

// ProtocolError reports a reply whose shape cannot be used.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "unexpected assistant reply: " + e.Reason
}
