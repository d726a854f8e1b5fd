package aggregate

import (
	"time"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// HeatmapCell counts utterances for one cycle phase on one weekday.
type HeatmapCell struct {
	Phase string `json:"phase"`
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// PhaseWeekdayHeatmap lays out 4 phases by 7 weekdays, zero-filled.
// byPhase holds the matching rows of the users in each phase.
func PhaseWeekdayHeatmap(byPhase map[store.CyclePhase][]store.UtteranceRow) []HeatmapCell {
	cells := make([]HeatmapCell, 0, 4*7)
	for _, phase := range store.AllCyclePhases() {
		perDay := make(map[string]int, 7)
		for _, r := range byPhase[phase] {
			perDay[Weekday(r.CreatedAt)]++
		}
		for _, day := range Weekdays() {
			cells = append(cells, HeatmapCell{Phase: string(phase), Day: day, Count: perDay[day]})
		}
	}
	return cells
}

// HourlyCell counts utterances for one hour of day on one weekday.
type HourlyCell struct {
	Hour  int    `json:"hour"`
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// HourWeekdayHeatmap lays out 24 hours by 7 weekdays, zero-filled, hour
// major.
func HourWeekdayHeatmap(rows []store.UtteranceRow) []HourlyCell {
	type slot struct {
		hour int
		day  string
	}
	counts := make(map[slot]int)
	for _, r := range rows {
		counts[slot{Hour(r.CreatedAt), Weekday(r.CreatedAt)}]++
	}
	cells := make([]HourlyCell, 0, 24*7)
	for h := 0; h < 24; h++ {
		for _, day := range Weekdays() {
			cells = append(cells, HourlyCell{Hour: h, Day: day, Count: counts[slot{h, day}]})
		}
	}
	return cells
}

// PeakHour returns the hour with the most timestamps. Ties go to the earliest
// hour. The boolean is false when times is empty.
func PeakHour(times []time.Time) (int, bool) {
	var counts [24]int
	for _, t := range times {
		counts[Hour(t)]++
	}
	best, bestCount := 0, 0
	for h, c := range counts {
		if c > bestCount {
			best, bestCount = h, c
		}
	}
	return best, bestCount > 0
}

// PeakWeekday returns the weekday label with the most timestamps. Ties go to the
// day earliest in the Monday-first week.
func PeakWeekday(times []time.Time) (string, bool) {
	counts := make(map[string]int, 7)
	for _, t := range times {
		counts[Weekday(t)]++
	}
	best, bestCount := "", 0
	for _, day := range Weekdays() {
		if counts[day] > bestCount {
			best, bestCount = day, counts[day]
		}
	}
	return best, bestCount > 0
}
