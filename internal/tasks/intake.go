package tasks

import (
	"context"
	"fmt"
	"time"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
)

// Enqueuer is the insert side of Store.
type Enqueuer interface {
	Enqueue(ctx context.Context, description string, dueAt time.Time) (int64, error)
}

// Intake turns assistant-thread messages into scheduled tasks. Every message
// from that thread is journaled; schedule commands are enqueued and answered
// with the due time, malformed ones with the expected format.
type Intake struct {
	Inbox    interfaces.Inbox
	Queue    Enqueuer
	Notifier interfaces.Notifier
	Journal  interfaces.Journal
	Clock    interfaces.Clock
	Metrics  interfaces.Metrics
	Location *time.Location

	// Since drops messages sent before the process started.
	Since time.Time
}

// IntakeResult summarizes one poll.
type IntakeResult struct {
	Scheduled int
	Rejected  int
	Ignored   int
}

// PollOnce reads the inbox and handles each message in order. Only an inbox
// failure is returned; per-message failures are logged.
func (in *Intake) PollOnce(ctx context.Context) (IntakeResult, error) {
	var res IntakeResult

	msgs, err := in.Inbox.Poll(ctx)
	if err != nil {
		return res, fmt.Errorf("poll inbox: %w", err)
	}
	for _, m := range msgs {
		switch in.handle(ctx, m) {
		case outcomeScheduled:
			res.Scheduled++
		case outcomeRejected:
			res.Rejected++
		default:
			res.Ignored++
		}
	}
	return res, nil
}

type outcome int

const (
	outcomeIgnored outcome = iota
	outcomeScheduled
	outcomeRejected
)

func (in *Intake) handle(ctx context.Context, m interfaces.Inbound) outcome {
	if m.Channel != interfaces.ChannelAssistant || m.Text == "" {
		logger.Debug(ctx, "Ignoring message outside the assistant thread", "update_id", m.UpdateID, "channel", m.Channel)
		return outcomeIgnored
	}
	if !in.Since.IsZero() && m.SentAt.Before(in.Since) {
		return outcomeIgnored
	}

	if in.Journal != nil {
		if err := in.Journal.Record(ctx, m.Username, m.Text); err != nil {
			logger.Warn(ctx, "Failed to journal message", "update_id", m.UpdateID, "error", err)
		}
	}
	if !IsCommand(m.Text) {
		return outcomeIgnored
	}

	task, due, err := ParseCommand(m.Text, in.now())
	if err != nil {
		logger.Info(ctx, "Rejected schedule command", "username", m.Username, "error", err)
		in.metrics().TaskProcessed("rejected")
		in.reply(ctx, "⚠️ Invalid format. Use: Programa: <task> en N minutos (at most 10080)")
		return outcomeRejected
	}

	id, err := in.Queue.Enqueue(ctx, task, due)
	if err != nil {
		logger.ErrorWithErr(ctx, "Enqueue task failed", err, "username", m.Username)
		in.metrics().TaskProcessed("rejected")
		in.reply(ctx, "⚠️ Could not save the task, please try again.")
		return outcomeRejected
	}

	dueAt := due.In(in.location()).Format(DueLayout)
	logger.Info(ctx, "Task scheduled", "task_id", id, "due_at", dueAt, "username", m.Username)
	in.metrics().TaskProcessed("scheduled")
	in.reply(ctx, fmt.Sprintf("✅ Task saved: «%s»\nIt will run at %s", task, dueAt))
	return outcomeScheduled
}

func (in *Intake) reply(ctx context.Context, text string) {
	if err := in.Notifier.Send(ctx, interfaces.ChannelAssistant, text); err != nil {
		logger.ErrorWithErr(ctx, "Failed to answer schedule command", err)
	}
}

func (in *Intake) now() time.Time {
	if in.Clock == nil {
		return time.Now()
	}
	return in.Clock.Now()
}

func (in *Intake) location() *time.Location {
	if in.Location == nil {
		return time.Local
	}
	return in.Location
}

func (in *Intake) metrics() interfaces.Metrics {
	if in.Metrics == nil {
		return interfaces.NopMetrics{}
	}
	return in.Metrics
}
