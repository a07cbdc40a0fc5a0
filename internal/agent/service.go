package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/partnerdesk/internal/domain"
	"github.com/ashureev/partnerdesk/internal/identity"
	"github.com/ashureev/partnerdesk/internal/sqlblock"
	"github.com/ashureev/partnerdesk/internal/store"
)

// Service runs one chat message through the assistant and the data store.
type Service struct {
	assistant Assistant
	poller    Poller
	executor  store.Executor
	log       ConversationLogger

	// Logger receives operational logs. Nil means slog.Default().
	Logger *slog.Logger
}

// NewService wires the orchestrator. A nil log discards audit events.
func NewService(assistant Assistant, poller Poller, executor store.Executor, log ConversationLogger) *Service {
	if log == nil {
		log = noopConversationLogger{}
	}
	return &Service{
		assistant: assistant,
		poller:    poller,
		executor:  executor,
		log:       log,
	}
}

// HandleChatMessage asks the assistant about message and returns its reply,
// merged with the result of any SQL statement the reply contains.
// Statement failures are reported inside the response, not as an error.
func (s *Service) HandleChatMessage(ctx context.Context, message string) (*domain.ChatResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	trace := newChatTrace(ctx, s.log)
	trace.event(EventUserMessage, "outbound", message, nil)

	text, err := s.ask(ctx, trace, message)
	if err != nil {
		trace.event(EventChatFailed, "inbound", "", map[string]any{"error": err.Error()})
		return nil, err
	}
	trace.event(EventAssistantMessage, "inbound", text, nil)

	resp := &domain.ChatResponse{Text: text}

	statement, ok := sqlblock.Extract(text)
	if !ok {
		return resp, nil
	}
	resp.Statement = statement
	if all := sqlblock.ExtractAll(text); len(all) > 1 {
		s.logger().Info("ignoring additional sql blocks", "thread_id", trace.threadID, "ignored", len(all)-1)
	}

	result, err := s.executor.Execute(ctx, statement)
	if err != nil {
		resp.ErrorMessage = statementErrorMessage(err)
		s.logger().Warn("statement failed", "thread_id", trace.threadID, "statement_len", len(statement), "error", err)
		trace.event(EventStatementFailed, "inbound", statement, map[string]any{"error": resp.ErrorMessage})
		return resp, nil
	}

	resp.Columns = result.Columns
	resp.Rows = result.Rows
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	if resp.Rows == nil {
		resp.Rows = []map[string]any{}
	}
	trace.event(EventStatementExecuted, "inbound", statement, map[string]any{"rows": len(resp.Rows)})
	return resp, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// ask runs the remote half of a chat: start, poll, read the reply.
func (s *Service) ask(ctx context.Context, trace *chatTrace, message string) (string, error) {
	handle, err := StartConversation(ctx, s.assistant, message)
	if err != nil {
		return "", err
	}
	trace.threadID = handle.ThreadID

	res, err := s.poller.Await(ctx, s.assistant, handle)
	if err != nil {
		return "", err
	}
	s.logger().Info("run finished", "thread_id", handle.ThreadID, "run_id", handle.RunID,
		"status", res.Status, "attempts", res.Attempts)
	if !res.Status.Succeeded() {
		return "", &RunError{Status: res.Status, Attempts: res.Attempts, Detail: res.Detail}
	}

	messages, err := s.assistant.ListMessages(ctx, handle.ThreadID)
	if err != nil {
		return "", &StageError{Stage: StageMessages, Err: err}
	}
	return latestAssistantText(messages)
}

// statementErrorMessage returns the driver text for execution failures.
func statementErrorMessage(err error) string {
	var se *store.StatementError
	if errors.As(err, &se) {
		return se.Message()
	}
	return err.Error()
}

// chatTrace stamps audit events with the request's identifiers.
type chatTrace struct {
	log       ConversationLogger
	clientID  string
	requestID string
	threadID  string
}

func newChatTrace(ctx context.Context, log ConversationLogger) *chatTrace {
	return &chatTrace{
		log:       log,
		clientID:  identity.ClientIDFromContext(ctx),
		requestID: chiMiddleware.GetReqID(ctx),
	}
}

func (t *chatTrace) event(eventType, direction, content string, meta map[string]any) {
	t.log.Log(ConversationLogEvent{
		ClientID:   t.clientID,
		RequestID:  t.requestID,
		ThreadID:   t.threadID,
		Channel:    "chat",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Meta:       meta,
	})
}
