package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
)

const answerPrefix = "[Scheduled Task]\n"

// Queue is the subset of Store the drainer needs.
type Queue interface {
	ListPending(ctx context.Context) ([]Task, error)
	MarkCompleted(ctx context.Context, id int64) error
	RecordFailure(ctx context.Context, id int64, cause error) error
}

// Drainer executes due tasks through the reasoner. Run DrainOnce from a single goroutine.
type Drainer struct {
	Queue    Queue
	Reasoner interfaces.Reasoner
	Notifier interfaces.Notifier
	Journal  interfaces.Journal
	Clock    interfaces.Clock
	Metrics  interfaces.Metrics
	Location *time.Location
}

// DrainResult summarizes one drain cycle.
type DrainResult struct {
	Completed int
	Failed    int
	Skipped   int
	NotDue    int
}

// DrainOnce runs every due pending task in insertion order. A reasoner error
// leaves the task pending for the next cycle. A malformed due time is logged
// and skipped. Only a failure to list the queue is returned as an error.
func (d *Drainer) DrainOnce(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	pending, err := d.Queue.ListPending(ctx)
	if err != nil {
		return res, err
	}

	now := d.clock().Now().In(d.location())
	for _, t := range pending {
		due, err := t.Due(d.location())
		if err != nil {
			logger.ErrorWithErr(ctx, "Skipping task with malformed due time", err, "task_id", t.ID)
			d.metrics().TaskProcessed("skipped")
			res.Skipped++
			continue
		}
		if due.After(now) {
			res.NotDue++
			continue
		}

		if err := d.execute(ctx, t); err != nil {
			logger.ErrorWithErr(ctx, "Task execution failed, will retry next cycle", err,
				"task_id", t.ID, "attempt", t.Attempts+1)
			if rerr := d.Queue.RecordFailure(ctx, t.ID, err); rerr != nil {
				logger.Warn(ctx, "Failed to record task failure", "task_id", t.ID, "error", rerr)
			}
			d.metrics().TaskProcessed("failed")
			res.Failed++
			continue
		}

		if err := d.Queue.MarkCompleted(ctx, t.ID); err != nil {
			if errors.Is(err, ErrNotPending) {
				logger.Warn(ctx, "Task already completed", "task_id", t.ID)
				continue
			}
			logger.ErrorWithErr(ctx, "Failed to mark task completed", err, "task_id", t.ID)
			continue
		}
		logger.Info(ctx, "Task completed", "task_id", t.ID, "due_at", t.DueAt)
		d.metrics().TaskProcessed("completed")
		res.Completed++
	}
	return res, nil
}

func (d *Drainer) execute(ctx context.Context, t Task) error {
	logger.Info(ctx, "Executing scheduled task", "task_id", t.ID, "due_at", t.DueAt)

	answer, err := d.Reasoner.Complete(ctx, t.Description)
	if err != nil {
		return fmt.Errorf("reasoning: %w", err)
	}

	if err := d.Notifier.Send(ctx, interfaces.ChannelAssistant, answerPrefix+answer); err != nil {
		logger.ErrorWithErr(ctx, "Failed to deliver task answer", err, "task_id", t.ID)
	}
	if d.Journal != nil {
		if err := d.Journal.Record(ctx, "Scheduler", fmt.Sprintf("Task %d answered: %s", t.ID, answer)); err != nil {
			logger.Warn(ctx, "Failed to journal task answer", "task_id", t.ID, "error", err)
		}
	}
	return nil
}

func (d *Drainer) clock() interfaces.Clock {
	if d.Clock == nil {
		return interfaces.SystemClock{}
	}
	return d.Clock
}

func (d *Drainer) location() *time.Location {
	if d.Location == nil {
		return time.Local
	}
	return d.Location
}

func (d *Drainer) metrics() interfaces.Metrics {
	if d.Metrics == nil {
		return interfaces.NopMetrics{}
	}
	return d.Metrics
}
