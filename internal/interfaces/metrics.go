package interfaces

import "time"

// Metrics records loop activity. Implementations must be safe for concurrent use.
type Metrics interface {
	SignalFired(kind, verdict string)
	CalendarFired(event string)
	TaskProcessed(result string)
	NotificationSent(method string, err error)
	ObserveTick(loop string, d time.Duration, err error)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) SignalFired(string, string)               {}
func (NopMetrics) CalendarFired(string)                     {}
func (NopMetrics) TaskProcessed(string)                     {}
func (NopMetrics) NotificationSent(string, error)           {}
func (NopMetrics) ObserveTick(string, time.Duration, error) {}
