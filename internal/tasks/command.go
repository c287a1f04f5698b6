package tasks

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadCommand is returned for text that looks like a schedule command but
// does not carry a minute offset.
var ErrBadCommand = errors.New(`invalid format, use "Programa: <task> en N minutos"`)

// MaxOffsetMinutes caps how far ahead a task may be scheduled (one week).
const MaxOffsetMinutes = 7 * 24 * 60

var commandPattern = regexp.MustCompile(`(?is)^\s*(?:programa|schedule)\s*:?\s*(.*?)\s+(?:en|in)\s+(\d+)\s+(?:minutos?|minutes?|mins?)\s*\.?\s*$`)

// IsCommand reports whether text is addressed to the scheduler.
func IsCommand(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(t, "programa") || strings.HasPrefix(t, "schedule")
}

// ParseCommand reads "Programa: <task> en N minutos" (or the English
// "Schedule: <task> in N minutes") and returns the task and its due time.
func ParseCommand(text string, now time.Time) (string, time.Time, error) {
	m := commandPattern.FindStringSubmatch(text)
	if m == nil {
		return "", time.Time{}, ErrBadCommand
	}
	task := strings.TrimSpace(m[1])
	if task == "" {
		return "", time.Time{}, ErrBadCommand
	}
	mins, err := strconv.Atoi(m[2])
	if err != nil || mins < 0 || mins > MaxOffsetMinutes {
		return "", time.Time{}, ErrBadCommand
	}
	return task, now.Add(time.Duration(mins) * time.Minute), nil
}
