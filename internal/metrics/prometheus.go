package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"market-watch-bot/internal/interfaces"
)

// Recorder implements interfaces.Metrics using Prometheus.
type Recorder struct {
	signals       *prometheus.CounterVec
	calendar      *prometheus.CounterVec
	tasks         *prometheus.CounterVec
	notifications *prometheus.CounterVec
	tickDuration  *prometheus.HistogramVec
	tickErrors    *prometheus.CounterVec
}

var _ interfaces.Metrics = (*Recorder)(nil)

// New registers the monitor metrics on reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_signals_fired_total",
				Help: "Signal notifications that passed the dedup gate",
			},
			[]string{"kind", "direction"},
		),
		calendar: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_calendar_fired_total",
				Help: "Calendar events fired",
			},
			[]string{"event"},
		),
		tasks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_tasks_total",
				Help: "Scheduled tasks processed by result",
			},
			[]string{"result"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_notifications_total",
				Help: "Notifier calls by method and result",
			},
			[]string{"method", "result"},
		),
		tickDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_loop_tick_seconds",
				Help:    "Duration of one loop tick",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"loop"},
		),
		tickErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_loop_tick_errors_total",
				Help: "Loop ticks that ended with an error",
			},
			[]string{"loop"},
		),
	}
}

func (r *Recorder) SignalFired(kind, verdict string) {
	r.signals.WithLabelValues(kind, verdict).Inc()
}

func (r *Recorder) CalendarFired(event string) {
	r.calendar.WithLabelValues(event).Inc()
}

func (r *Recorder) TaskProcessed(result string) {
	r.tasks.WithLabelValues(result).Inc()
}

func (r *Recorder) NotificationSent(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.notifications.WithLabelValues(method, result).Inc()
}

func (r *Recorder) ObserveTick(loop string, d time.Duration, err error) {
	r.tickDuration.WithLabelValues(loop).Observe(d.Seconds())
	if err != nil {
		r.tickErrors.WithLabelValues(loop).Inc()
	}
}
