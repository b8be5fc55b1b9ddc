package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// KeyPrefix namespaces every persisted key.
	KeyPrefix = "vidya"
	// DateLayout is the calendar date format used in keys and APIs.
	DateLayout = "2006-01-02"
	// Today is accepted wherever a date is.
	Today = "today"
)

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// ResolveDate maps "" and "today" to the date of now, and validates anything else.
func ResolveDate(raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, Today) {
		return DateOf(now), nil
	}
	if _, err := ParseDate(raw); err != nil {
		return "", err
	}
	return raw, nil
}

func key(parts ...string) string {
	return strings.Join(append([]string{KeyPrefix}, parts...), ":")
}

// DateOfKey returns the date segment of a key built by this package.
func DateOfKey(k string) (string, bool) {
	parts := strings.SplitN(k, ":", 4)
	if len(parts) < 3 || parts[0] != KeyPrefix {
		return "", false
	}
	if _, err := ParseDate(parts[2]); err != nil {
		return "", false
	}
	return parts[2], true
}

// QuizKey stores the quiz for a date.
func QuizKey(date string) string {
	return key("quiz", date)
}

// LeaderboardKey stores the ordered attempts for a date.
func LeaderboardKey(date string) string {
	return key("leaderboard", date)
}

// ResultKey stores one submitter's cached result for a date.
func ResultKey(date, userID string) string {
	return key("result", date, userID)
}
