package calendar

import (
	"fmt"
	"time"
)

// Event names.
const (
	SixHourClose   = "six_hour_close"
	DailyReport    = "daily_report"
	MarketOpen     = "weekday_market_open"
	WeekdayMorning = "weekday_morning"
	WeekdayEvening = "weekday_evening"
	WeekendMorning = "weekend_morning"
	SentimentImage = "sentiment_image"
)

// PeriodKey identifies one occurrence of a recurring event. Hour is -1 for
// events keyed by day only.
type PeriodKey struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

func (k PeriodKey) String() string {
	if k.Hour < 0 {
		return fmt.Sprintf("%04d-%02d-%02d", k.Year, k.Month, k.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d/%02d", k.Year, k.Month, k.Day, k.Hour)
}

// DayKey keys t by its calendar day.
func DayKey(t time.Time) PeriodKey {
	return PeriodKey{Year: t.Year(), Month: t.Month(), Day: t.Day(), Hour: -1}
}

// SixHourKey keys t by day and six-hour bucket.
func SixHourKey(t time.Time) PeriodKey {
	k := DayKey(t)
	k.Hour = t.Hour() - t.Hour()%6
	return k
}

// Weekdays is a set of allowed weekdays. Empty means every day.
type Weekdays []time.Weekday

var (
	MonToFri = Weekdays{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	SatSun   = Weekdays{time.Saturday, time.Sunday}
)

func (w Weekdays) allows(d time.Weekday) bool {
	if len(w) == 0 {
		return true
	}
	for _, x := range w {
		if x == d {
			return true
		}
	}
	return false
}

// Window decides whether a local (hour, minute) is inside an event's firing window.
type Window func(hour, minute int) bool

// At matches hour == h and minute < span.
func At(h, span int) Window {
	return func(hour, minute int) bool { return hour == h && minute < span }
}

// AtExact matches hour == h and minute == m.
func AtExact(h, m int) Window {
	return func(hour, minute int) bool { return hour == h && minute == m }
}

// EverySixHours matches hour % 6 == 0 and minute < span.
func EverySixHours(span int) Window {
	return func(hour, minute int) bool { return hour%6 == 0 && minute < span }
}

// Event is one named recurring trigger.
type Event struct {
	Name     string
	Window   Window
	Key      func(time.Time) PeriodKey
	Weekdays Weekdays
	Action   Action
}

// DefaultEvents builds the fixed event table bound to the given actions.
func DefaultEvents(a Actions) []Event {
	return []Event{
		{Name: SixHourClose, Window: EverySixHours(2), Key: SixHourKey, Action: a.SixHourClose},
		{Name: DailyReport, Window: At(0, 1), Key: DayKey, Action: a.DailyReport},
		{Name: MarketOpen, Window: At(4, 2), Key: DayKey, Weekdays: MonToFri, Action: a.MarketOpen},
		{Name: WeekdayMorning, Window: At(9, 2), Key: DayKey, Weekdays: MonToFri, Action: a.WeekdayMorning},
		{Name: WeekdayEvening, Window: At(20, 2), Key: DayKey, Weekdays: MonToFri, Action: a.WeekdayEvening},
		{Name: WeekendMorning, Window: At(9, 2), Key: DayKey, Weekdays: SatSun, Action: a.WeekendMorning},
		{Name: SentimentImage, Window: AtExact(19, 40), Key: DayKey, Action: a.SentimentImage},
	}
}

// TriggerState is the last fired period key per event name plus the dispatch cooldown.
// Treat it as a value: Due returns a fresh copy.
type TriggerState struct {
	LastFired     map[string]PeriodKey
	CooldownUntil time.Time
}

func (s TriggerState) clone() TriggerState {
	out := TriggerState{LastFired: make(map[string]PeriodKey, len(s.LastFired)), CooldownUntil: s.CooldownUntil}
	for k, v := range s.LastFired {
		out.LastFired[k] = v
	}
	return out
}

// Due returns the events eligible at now, in table order, and the state with their
// period keys recorded. now is converted to loc before any comparison.
func Due(events []Event, now time.Time, loc *time.Location, state TriggerState) ([]Event, TriggerState, error) {
	if loc == nil {
		return nil, state, fmt.Errorf("calendar: nil location")
	}
	local := now.In(loc)
	hour, minute, weekday := local.Hour(), local.Minute(), local.Weekday()

	next := state.clone()
	var due []Event
	for _, ev := range events {
		if !ev.Weekdays.allows(weekday) || !ev.Window(hour, minute) {
			continue
		}
		key := ev.Key(local)
		if last, ok := next.LastFired[ev.Name]; ok && last == key {
			continue
		}
		next.LastFired[ev.Name] = key
		due = append(due, ev)
	}
	return due, next, nil
}
