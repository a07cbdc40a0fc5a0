package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/partnerdesk/internal/domain"
)

func TestPollerStopsOnTerminalStatus(t *testing.T) {
	a := &fakeAssistant{statuses: []domain.RunStatus{
		domain.RunStatusQueued, domain.RunStatusInProgress, domain.RunStatusCompleted,
	}}

	res, err := fastPoller(30).Await(context.Background(), a, RunHandle{ThreadID: "thread_1", RunID: "run_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, res.Status)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, a.getRunCalls)
}

func TestPollerExhaustsExactlyMaxAttempts(t *testing.T) {
	for _, attempts := range []int{1, 3, 7} {
		a := &fakeAssistant{statuses: []domain.RunStatus{domain.RunStatusInProgress}}

		res, err := fastPoller(attempts).Await(context.Background(), a, RunHandle{ThreadID: "thread_1", RunID: "run_1"})
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusTimedOut, res.Status)
		assert.Equal(t, attempts, res.Attempts)
		assert.Equal(t, attempts, a.getRunCalls, "status reads for MaxAttempts=%d", attempts)
	}
}

func TestPollerReportsFailureDetail(t *testing.T) {
	a := &fakeAssistant{
		statuses:  []domain.RunStatus{domain.RunStatusFailed},
		lastError: "Rate limit reached",
	}

	res, err := fastPoller(5).Await(context.Background(), a, RunHandle{ThreadID: "thread_1", RunID: "run_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, res.Status)
	assert.Equal(t, "Rate limit reached", res.Detail)
	assert.Equal(t, 1, res.Attempts)
}

func TestPollerStatusReadFailure(t *testing.T) {
	a := &fakeAssistant{getRunErr: errors.New("502 bad gateway")}

	_, err := fastPoller(5).Await(context.Background(), a, RunHandle{ThreadID: "thread_1", RunID: "run_1"})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageStatus, stageErr.Stage)
	assert.Equal(t, 1, a.getRunCalls)
}

func TestPollerHonorsCancellation(t *testing.T) {
	a := &fakeAssistant{statuses: []domain.RunStatus{domain.RunStatusInProgress}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Poller{Interval: time.Hour, MaxAttempts: 30}
	_, err := p.Await(ctx, a, RunHandle{ThreadID: "thread_1", RunID: "run_1"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.getRunCalls)
}

func TestPollerWaitsBetweenReads(t *testing.T) {
	a := &fakeAssistant{statuses: []domain.RunStatus{domain.RunStatusInProgress}}
	p := Poller{Interval: 10 * time.Millisecond, MaxAttempts: 3}

	start := time.Now()
	res, err := p.Await(context.Background(), a, RunHandle{ThreadID: "thread_1", RunID: "run_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusTimedOut, res.Status)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
