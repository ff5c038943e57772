package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// NextRun computes the next trigger instant as a pure function of the
// configured frequency, time-of-day, current time and timezone.
func NextRun(frequency models.Frequency, timeOfDay string, now time.Time, loc *time.Location) time.Time {
	now = now.In(loc)
	hour, minute := parseTimeOfDay(timeOfDay)
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)

	switch frequency {
	case models.FrequencyHourly:
		return now.Add(time.Hour).Truncate(time.Hour)

	case models.FrequencyTwiceDaily:
		if at.After(now) {
			return at
		}
		if second := at.Add(12 * time.Hour); second.After(now) {
			return second
		}
		return at.AddDate(0, 0, 1)

	case models.FrequencyWeekly:
		days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		next := at.AddDate(0, 0, days)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next

	default: // daily
		if at.After(now) {
			return at
		}
		return at.AddDate(0, 0, 1)
	}
}

// parseTimeOfDay reads an "HH:MM" setting, defaulting to 09:00 when the
// value is malformed.
func parseTimeOfDay(value string) (hour, minute int) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 9, 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 9, 0
	}
	return h, m
}
