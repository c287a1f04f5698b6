package calendar

import (
	"context"
	"fmt"
	"time"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
)

// Action is what an event does when it fires. now is already in the engine's zone.
type Action func(ctx context.Context, now time.Time) error

// Actions binds each named event to its behavior.
type Actions struct {
	SixHourClose   Action
	DailyReport    Action
	MarketOpen     Action
	WeekdayMorning Action
	WeekdayEvening Action
	WeekendMorning Action
	SentimentImage Action
}

// Engine drives the calendar loop. It owns its TriggerState and must be ticked
// from a single goroutine.
type Engine struct {
	events   []Event
	loc      *time.Location
	cooldown time.Duration
	clock    interfaces.Clock
	metrics  interfaces.Metrics

	state TriggerState
}

// NewEngine builds an engine over events evaluated in loc.
func NewEngine(events []Event, loc *time.Location, cooldown time.Duration, clock interfaces.Clock, metrics interfaces.Metrics) *Engine {
	if clock == nil {
		clock = interfaces.SystemClock{}
	}
	if metrics == nil {
		metrics = interfaces.NopMetrics{}
	}
	return &Engine{
		events:   events,
		loc:      loc,
		cooldown: cooldown,
		clock:    clock,
		metrics:  metrics,
		state:    TriggerState{LastFired: map[string]PeriodKey{}},
	}
}

// State returns a copy of the trigger state.
func (e *Engine) State() TriggerState {
	return e.state.clone()
}

// Tick evaluates every event against the current time and runs the due actions
// in table order. It returns the names fired. An action error is logged and does
// not stop the remaining actions or roll back the period key.
func (e *Engine) Tick(ctx context.Context) ([]string, error) {
	now := e.clock.Now()
	if now.Before(e.state.CooldownUntil) {
		logger.Debug(ctx, "Calendar in cooldown", "until", e.state.CooldownUntil)
		return nil, nil
	}

	due, next, err := Due(e.events, now, e.loc, e.state)
	if err != nil {
		return nil, fmt.Errorf("calendar evaluation: %w", err)
	}
	e.state = next

	local := now.In(e.loc)
	fired := make([]string, 0, len(due))
	for _, ev := range due {
		key := ev.Key(local)
		logger.Dispatch(ctx, ev.Name, key.String(), "local_time", local.Format("2006-01-02 15:04:05"))
		e.metrics.CalendarFired(ev.Name)
		fired = append(fired, ev.Name)

		if ev.Action == nil {
			continue
		}
		if err := e.run(ctx, ev, local); err != nil {
			logger.ErrorWithErr(ctx, "Calendar action failed", err, "event", ev.Name)
		}
	}

	if len(fired) > 0 && e.cooldown > 0 {
		e.state.CooldownUntil = now.Add(e.cooldown)
	}
	return fired, nil
}

func (e *Engine) run(ctx context.Context, ev Event, local time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", ev.Name, r)
		}
	}()
	return ev.Action(ctx, local)
}
