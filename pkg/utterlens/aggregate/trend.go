package aggregate

import (
	"sort"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// MonthlyTrendLimit is the number of months the trend keeps.
const MonthlyTrendLimit = 12

// TrendPoint is the utterance count of one calendar month.
type TrendPoint struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthlyTrend buckets rows by YYYY-MM, ascending, keeping only the most
// recent limit months that have data.
func MonthlyTrend(rows []store.UtteranceRow, limit int) []TrendPoint {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[Month(r.CreatedAt)]++
	}
	points := make([]TrendPoint, 0, len(counts))
	for m, c := range counts {
		points = append(points, TrendPoint{Month: m, Count: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points
}
