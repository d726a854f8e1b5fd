package aggregate

import "time"

var weekdayLabels = [7]string{"月", "火", "水", "木", "金", "土", "日"}

// Weekdays returns a fresh slice of the weekday labels, Monday first.
func Weekdays() []string {
	out := make([]string, len(weekdayLabels))
	copy(out, weekdayLabels[:])
	return out
}

// Weekday labels t's day of week. Timestamps are taken as UTC wall clock.
func Weekday(t time.Time) string {
	return weekdayLabels[(int(t.UTC().Weekday())+6)%7]
}

// Hour returns t's hour of day in UTC wall clock.
func Hour(t time.Time) int {
	return t.UTC().Hour()
}

// Month buckets t as YYYY-MM.
func Month(t time.Time) string {
	return t.UTC().Format("2006-01")
}
