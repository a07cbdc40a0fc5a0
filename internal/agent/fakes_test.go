package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashureev/partnerdesk/internal/domain"
	"github.com/ashureev/partnerdesk/internal/store"
)

// fakeAssistant scripts the model service. GetRun walks statuses and then
// repeats the last one; an empty script completes immediately.
type fakeAssistant struct {
	mu sync.Mutex

	threadErr error
	postErr   error
	runErr    error
	getRunErr error
	listErr   error

	statuses  []domain.RunStatus
	lastError string
	messages  []domain.Message

	threads     int
	posted      []string
	getRunCalls int
	listCalls   int
}

func replyWith(text string) *fakeAssistant {
	return &fakeAssistant{messages: assistantReply(text)}
}

func assistantReply(text string) []domain.Message {
	return []domain.Message{
		{
			ID:      "msg_2",
			Role:    domain.MessageRoleAssistant,
			Content: []domain.MessageContent{{Type: "text", Text: text}},
		},
		{
			ID:      "msg_1",
			Role:    domain.MessageRoleUser,
			Content: []domain.MessageContent{{Type: "text", Text: "question"}},
		},
	}
}

func (f *fakeAssistant) CreateThread(context.Context) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads++
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	return &domain.Conversation{ThreadID: fmt.Sprintf("thread_%d", f.threads)}, nil
}

func (f *fakeAssistant) PostMessage(_ context.Context, _ string, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, content)
	return nil
}

func (f *fakeAssistant) StartRun(_ context.Context, threadID string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &domain.Run{ID: "run_1", ThreadID: threadID, Status: domain.RunStatusQueued}, nil
}

func (f *fakeAssistant) GetRun(_ context.Context, threadID, runID string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getRunCalls++
	if f.getRunErr != nil {
		return nil, f.getRunErr
	}
	status := domain.RunStatusCompleted
	if len(f.statuses) > 0 {
		i := min(f.getRunCalls-1, len(f.statuses)-1)
		status = f.statuses[i]
	}
	return &domain.Run{ID: runID, ThreadID: threadID, Status: status, LastError: f.lastError}, nil
}

func (f *fakeAssistant) ListMessages(context.Context, string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.messages, nil
}

// recordingExecutor captures statements without touching a store.
type recordingExecutor struct {
	mu         sync.Mutex
	statements []string
	result     *domain.QueryResult
	err        error
}

func (e *recordingExecutor) Execute(_ context.Context, statement string) (*domain.QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statements = append(e.statements, statement)
	return e.result, e.err
}

// recordingLog captures conversation events synchronously.
type recordingLog struct {
	mu     sync.Mutex
	events []ConversationLogEvent
}

func (l *recordingLog) Log(event ConversationLogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingLog) Close() error { return nil }

func (l *recordingLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.EventType)
	}
	return out
}

// fastPoller polls without real delays.
func fastPoller(maxAttempts int) Poller {
	return Poller{Interval: 0, MaxAttempts: maxAttempts}
}

// newPartnerStore opens an in-memory SQLite store with two partners.
func newPartnerStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.Open(store.Options{Driver: store.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE partners (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, partner_type TEXT NOT NULL)`,
		`INSERT INTO partners (name, partner_type) VALUES ('Acme Fiber', 'vendor')`,
		`INSERT INTO partners (name, partner_type) VALUES ('Rahim Uddin', 'customer')`,
	} {
		_, err := s.Execute(ctx, stmt)
		require.NoError(t, err)
	}
	return s
}
