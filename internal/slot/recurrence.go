package slot

import (
	"strings"
	"time"
)

// defaultRecurrenceHorizon bounds how far ahead recurring slots are
// materialized. Matches the gateway-facing booking window.
const defaultRecurrenceHorizon = 4 * 7 * 24 * time.Hour

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseWeekdays maps lowercase day names onto time.Weekday, ignoring
// unknown entries.
func parseWeekdays(days []string) map[time.Weekday]bool {
	out := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(d))]; ok {
			out[wd] = true
		}
	}
	return out
}

// expandOccurrences enumerates the (start, end) windows a recurring slot
// occupies: the template window itself plus every matching weekday between
// the template start and the horizon, at the same time of day. The result
// is ordered and includes the template window exactly once.
func expandOccurrences(start, end time.Time, days []string, horizon time.Duration) [][2]time.Time {
	wanted := parseWeekdays(days)
	if len(wanted) == 0 {
		return [][2]time.Time{{start, end}}
	}
	if horizon <= 0 {
		horizon = defaultRecurrenceHorizon
	}

	duration := end.Sub(start)
	limit := start.Add(horizon)

	out := make([][2]time.Time, 0, 8)
	out = append(out, [2]time.Time{start, end})

	for day := start.AddDate(0, 0, 1); day.Before(limit); day = day.AddDate(0, 0, 1) {
		if !wanted[day.Weekday()] {
			continue
		}
		out = append(out, [2]time.Time{day, day.Add(duration)})
	}

	return out
}
