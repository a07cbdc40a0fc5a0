package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/partnerdesk/internal/domain"
)

// Poller waits for a run to reach a terminal status within a bounded budget.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *slog.Logger
}

// Await reads the run status every Interval, at most MaxAttempts times.
// When the budget runs out the result carries RunStatusTimedOut.
// A failed status read aborts with a *StageError.
func (p Poller) Await(ctx context.Context, a Assistant, handle RunHandle) (PollResult, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return PollResult{Attempts: attempt - 1}, ctx.Err()
		case <-timer.C:
		}

		run, err := a.GetRun(ctx, handle.ThreadID, handle.RunID)
		if err != nil {
			return PollResult{Attempts: attempt}, &StageError{Stage: StageStatus, Err: err}
		}

		logger.Debug("run status", "thread_id", handle.ThreadID, "run_id", handle.RunID,
			"status", run.Status, "attempt", attempt)

		if run.Status.IsTerminal() {
			return PollResult{Status: run.Status, Attempts: attempt, Detail: run.LastError}, nil
		}

		timer.Reset(p.Interval)
	}

	logger.Warn("run polling budget exhausted", "thread_id", handle.ThreadID, "run_id", handle.RunID,
		"attempts", p.MaxAttempts, "budget", p.Interval*time.Duration(p.MaxAttempts))
	return PollResult{Status: domain.RunStatusTimedOut, Attempts: p.MaxAttempts}, nil
}
