package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"market-watch-bot/internal/interfaces"
	"market-watch-bot/internal/logger"
)

// DefaultHeartbeat is the minimum spacing of "monitor active" logs per loop.
const DefaultHeartbeat = 5 * time.Minute

// ErrTickInProgress is returned when a tick is due while the previous one of
// the same loop is still running. The due tick is dropped, not queued.
var ErrTickInProgress = errors.New("previous tick still running")

// Loop is one periodic driver. Tick is never run concurrently with itself.
type Loop struct {
	Name     string
	Interval time.Duration
	Tick     func(ctx context.Context) error
}

// Runner schedules the loops on gocron. Loops run independently of each
// other; a slow or failing loop never delays another.
type Runner struct {
	scheduler *gocron.Scheduler
	metrics   interfaces.Metrics
	clock     interfaces.Clock
	heartbeat time.Duration

	mu       sync.Mutex
	lastBeat map[string]time.Time
	inflight map[string]*atomic.Bool
}

// New creates a runner whose scheduler works in loc.
func New(loc *time.Location, metrics interfaces.Metrics, clock interfaces.Clock) *Runner {
	if loc == nil {
		loc = time.Local
	}
	if metrics == nil {
		metrics = interfaces.NopMetrics{}
	}
	if clock == nil {
		clock = interfaces.SystemClock{}
	}
	return &Runner{
		scheduler: gocron.NewScheduler(loc),
		metrics:   metrics,
		clock:     clock,
		heartbeat: DefaultHeartbeat,
		lastBeat:  map[string]time.Time{},
		inflight:  map[string]*atomic.Bool{},
	}
}

// SetHeartbeat changes the heartbeat spacing. Zero disables heartbeats.
func (r *Runner) SetHeartbeat(d time.Duration) {
	r.heartbeat = d
}

// Register schedules loop every Interval, starting immediately once the
// runner is started. ctx is handed to every tick.
func (r *Runner) Register(ctx context.Context, loop Loop) error {
	if loop.Tick == nil {
		return fmt.Errorf("loop %q has no tick function", loop.Name)
	}
	if loop.Interval <= 0 {
		return fmt.Errorf("loop %q has non-positive interval %s", loop.Name, loop.Interval)
	}
	_, err := r.scheduler.Every(loop.Interval).Tag(loop.Name).Do(func() {
		_ = r.RunTick(ctx, loop)
	})
	if err != nil {
		return fmt.Errorf("schedule loop %q: %w", loop.Name, err)
	}
	logger.Info(ctx, "Loop registered", "loop", loop.Name, "interval", loop.Interval)
	return nil
}

// Start begins running the registered loops in the background.
func (r *Runner) Start() {
	r.scheduler.StartAsync()
}

// Stop stops scheduling new ticks and waits for running ones to finish.
func (r *Runner) Stop() {
	r.scheduler.Stop()
}

// RunTick executes one tick of loop. A panic is recovered and returned as an
// error so the loop keeps its schedule. Every tick gets its own id in logs and
// on its span. A tick that finds the previous one still running returns
// ErrTickInProgress without running, so a slow loop only delays its next tick.
func (r *Runner) RunTick(ctx context.Context, loop Loop) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	running := r.flag(loop.Name)
	if !running.CompareAndSwap(false, true) {
		logger.Debug(ctx, "Previous tick still running, skipping", "loop", loop.Name)
		return ErrTickInProgress
	}
	defer running.Store(false)

	tickID := uuid.New().String()
	timer := logger.StartOperation(ctx, "loop."+loop.Name, "loop", loop.Name, "tick_id", tickID)
	tickCtx := timer.GetContext()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("loop %s panicked: %v", loop.Name, rec)
		}

		var d time.Duration
		if err != nil {
			d = timer.EndWithError(err)
		} else {
			d = timer.End()
		}
		r.metrics.ObserveTick(loop.Name, d, err)
		r.beat(tickCtx, loop.Name)
	}()

	return loop.Tick(tickCtx)
}

func (r *Runner) flag(name string) *atomic.Bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.inflight[name]
	if !ok {
		f = &atomic.Bool{}
		r.inflight[name] = f
	}
	return f
}

func (r *Runner) beat(ctx context.Context, name string) {
	if r.heartbeat <= 0 {
		return
	}
	now := r.clock.Now()

	r.mu.Lock()
	last, ok := r.lastBeat[name]
	due := !ok || now.Sub(last) >= r.heartbeat
	if due {
		r.lastBeat[name] = now
	}
	r.mu.Unlock()

	if due {
		logger.Info(ctx, "Monitor active", "loop", name, "at", now.Format(time.RFC3339))
	}
}
