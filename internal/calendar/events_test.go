package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func caracas(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Caracas")
	require.NoError(t, err)
	return loc
}

// names returns the fired event names for each tick, threading state through.
func names(t *testing.T, events []Event, loc *time.Location, ticks ...time.Time) [][]string {
	t.Helper()
	state := TriggerState{}
	out := make([][]string, 0, len(ticks))
	for _, tick := range ticks {
		due, next, err := Due(events, tick, loc, state)
		require.NoError(t, err)
		state = next
		var fired []string
		for _, ev := range due {
			fired = append(fired, ev.Name)
		}
		out = append(out, fired)
	}
	return out
}

func only(events []Event, name string) []Event {
	for _, ev := range events {
		if ev.Name == name {
			return []Event{ev}
		}
	}
	return nil
}

func TestMarketOpenAtMostOncePerDay(t *testing.T) {
	loc := caracas(t)
	events := only(DefaultEvents(Actions{}), MarketOpen)
	day := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, loc) } // Monday

	got := names(t, events, loc, day(4, 0), day(4, 1), day(4, 5), day(5, 0))
	assert.Equal(t, [][]string{{MarketOpen}, nil, nil, nil}, got)
}

func TestMarketOpenFiresOnSecondTickIfFirstMissedWindow(t *testing.T) {
	loc := caracas(t)
	events := only(DefaultEvents(Actions{}), MarketOpen)
	day := func(h, m, s int) time.Time { return time.Date(2025, 3, 10, h, m, s, 0, loc) }

	got := names(t, events, loc, day(3, 59, 45), day(4, 1, 15), day(4, 1, 45))
	assert.Equal(t, [][]string{nil, {MarketOpen}, nil}, got)
}

func TestSixHourBucketsAreDistinct(t *testing.T) {
	loc := caracas(t)
	events := only(DefaultEvents(Actions{}), SixHourClose)
	day := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, loc) }

	got := names(t, events, loc, day(0, 0), day(0, 1), day(0, 30), day(6, 0), day(6, 1))
	assert.Equal(t, [][]string{{SixHourClose}, nil, nil, {SixHourClose}, nil}, got)
}

func TestSixHourKey(t *testing.T) {
	loc := caracas(t)
	k := SixHourKey(time.Date(2025, 3, 10, 13, 59, 0, 0, loc))
	assert.Equal(t, PeriodKey{Year: 2025, Month: time.March, Day: 10, Hour: 12}, k)
	assert.Equal(t, "2025-03-10/12", k.String())
	assert.Equal(t, "2025-03-10", DayKey(time.Date(2025, 3, 10, 13, 0, 0, 0, loc)).String())
}

func TestMidnightFiresDailyAndSixHour(t *testing.T) {
	loc := caracas(t)
	got := names(t, DefaultEvents(Actions{}), loc, time.Date(2025, 3, 10, 0, 0, 20, 0, loc))
	assert.Equal(t, [][]string{{SixHourClose, DailyReport}}, got)
}

func TestDailyReportWindowIsOneMinute(t *testing.T) {
	loc := caracas(t)
	events := only(DefaultEvents(Actions{}), DailyReport)
	got := names(t, events, loc, time.Date(2025, 3, 10, 0, 1, 0, 0, loc))
	assert.Equal(t, [][]string{nil}, got)
}

func TestWeekdayRestrictions(t *testing.T) {
	loc := caracas(t)
	events := DefaultEvents(Actions{})

	monday := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
	saturday := time.Date(2025, 3, 15, 9, 0, 0, 0, loc)

	assert.Equal(t, [][]string{{WeekdayMorning}}, names(t, events, loc, monday))
	assert.Equal(t, [][]string{{WeekendMorning}}, names(t, events, loc, saturday))

	saturdayOpen := time.Date(2025, 3, 15, 4, 0, 0, 0, loc)
	saturdayEvening := time.Date(2025, 3, 15, 20, 0, 0, 0, loc)
	assert.Equal(t, [][]string{nil, nil}, names(t, events, loc, saturdayOpen, saturdayEvening))
}

func TestSentimentImageExactMinute(t *testing.T) {
	loc := caracas(t)
	events := only(DefaultEvents(Actions{}), SentimentImage)
	day := func(m int) time.Time { return time.Date(2025, 3, 10, 19, m, 30, 0, loc) }

	got := names(t, events, loc, day(39), day(40), day(40), day(41))
	assert.Equal(t, [][]string{nil, {SentimentImage}, nil, nil}, got)
}

func TestNextDayFiresAgain(t *testing.T) {
	loc := caracas(t)
	events := only(DefaultEvents(Actions{}), WeekdayEvening)
	got := names(t, events, loc,
		time.Date(2025, 3, 10, 20, 0, 0, 0, loc),
		time.Date(2025, 3, 11, 20, 0, 0, 0, loc),
	)
	assert.Equal(t, [][]string{{WeekdayEvening}, {WeekdayEvening}}, got)
}

func TestDueUsesFixedZoneNotUTC(t *testing.T) {
	loc := caracas(t)
	events := only(DefaultEvents(Actions{}), MarketOpen)

	// 08:00 UTC is 04:00 in Caracas.
	utc := time.Date(2025, 3, 10, 8, 0, 30, 0, time.UTC)
	assert.Equal(t, [][]string{{MarketOpen}}, names(t, events, loc, utc))

	// 04:00 UTC is midnight in Caracas, not the market open.
	utc = time.Date(2025, 3, 10, 4, 0, 30, 0, time.UTC)
	assert.Equal(t, [][]string{nil}, names(t, events, loc, utc))
}

func TestDueDoesNotMutateInputState(t *testing.T) {
	loc := caracas(t)
	state := TriggerState{LastFired: map[string]PeriodKey{}}
	_, next, err := Due(DefaultEvents(Actions{}), time.Date(2025, 3, 10, 4, 0, 0, 0, loc), loc, state)
	require.NoError(t, err)

	assert.Empty(t, state.LastFired)
	assert.Contains(t, next.LastFired, MarketOpen)
}

func TestDueNilLocation(t *testing.T) {
	_, _, err := Due(DefaultEvents(Actions{}), time.Now(), nil, TriggerState{})
	assert.Error(t, err)
}
