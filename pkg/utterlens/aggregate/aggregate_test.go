package aggregate

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/utterlens/pkg/utterlens/store"
)

// 2025-03-03 is a Monday.
var monday = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

func row(age store.AgeGroup, mode store.Mode, phase store.CyclePhase, at time.Time, content string) store.UtteranceRow {
	return store.UtteranceRow{
		Utterance:  store.Utterance{Role: store.RoleUser, Content: content, CreatedAt: at},
		AgeGroup:   age,
		Mode:       mode,
		CyclePhase: phase,
	}
}

func orphan(at time.Time, content string) store.UtteranceRow {
	return store.UtteranceRow{Utterance: store.Utterance{Role: store.RoleUser, Content: content, CreatedAt: at}, Orphan: true}
}

func sumCells(cells []Cell) int {
	n := 0
	for _, c := range cells {
		n += c.Count
	}
	return n
}

func TestWeekday(t *testing.T) {
	for i, want := range Weekdays() {
		if got := Weekday(monday.AddDate(0, 0, i)); got != want {
			t.Errorf("day %d: got %s, want %s", i, got, want)
		}
	}
}

func TestWeekdaysReturnsCopy(t *testing.T) {
	Weekdays()[0] = "x"
	if got := Weekdays()[0]; got != "月" {
		t.Fatalf("labels mutated through Weekdays: first = %q", got)
	}
	if got := Weekday(monday); got != "月" {
		t.Fatalf("Weekday(monday) = %q", got)
	}
}

func TestGroupCountsNoZeroFill(t *testing.T) {
	rows := []store.UtteranceRow{
		row(store.AgeTwenties, store.ModeCycle, store.PhaseMenstrual, monday, "a"),
		row(store.AgeTwenties, store.ModeCycle, store.PhaseMenstrual, monday, "b"),
		row(store.AgeThirties, store.ModeFertility, store.PhaseLuteal, monday, "c"),
		orphan(monday, "d"),
	}
	got := GroupCounts(rows, ByAgeGroup)
	want := []store.KeyCount{{Key: "20代", Count: 2}, {Key: "30代", Count: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GroupCounts (-want +got):\n%s", diff)
	}
	if got := GroupCounts(nil, ByMode); len(got) != 0 {
		t.Errorf("empty input produced %v", got)
	}
}

func TestCrossTabZeroFill(t *testing.T) {
	rows := []store.UtteranceRow{
		row(store.AgeTwenties, store.ModeCycle, store.PhaseMenstrual, monday, ""),
		row(store.AgeTwenties, store.ModeCycle, store.PhaseLuteal, monday, ""),
		row(store.AgeFortiesUp, store.ModeFertility, store.PhaseLuteal, monday, ""),
	}
	tests := []struct {
		name     string
		row, col Axis
		cells    int
	}{
		{"age x phase", AgeAxis(), PhaseAxis(), 16},
		{"mode x phase", ModeAxis(), PhaseAxis(), 8},
		{"age x mode", AgeAxis(), ModeAxis(), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CrossTab(rows, tt.row, tt.col)
			if len(m.Cells) != tt.cells {
				t.Fatalf("got %d cells, want %d", len(m.Cells), tt.cells)
			}
			if sumCells(m.Cells) != len(rows) || m.Total != len(rows) || m.Skipped != 0 {
				t.Errorf("sum=%d total=%d skipped=%d, want %d", sumCells(m.Cells), m.Total, m.Skipped, len(rows))
			}
			seen := make(map[string]bool)
			for _, c := range m.Cells {
				key := c.Row + "/" + c.Col
				if seen[key] {
					t.Errorf("duplicate cell %s", key)
				}
				seen[key] = true
			}
		})
	}

	m := CrossTab(rows, AgeAxis(), PhaseAxis())
	if m.Cells[0] != (Cell{Row: "10代", Col: "月経期", Count: 0}) {
		t.Errorf("first cell = %+v, want declared order starting at 10代/月経期", m.Cells[0])
	}
	if m.Cells[7] != (Cell{Row: "20代", Col: "黄体期", Count: 1}) {
		t.Errorf("cell 7 = %+v", m.Cells[7])
	}
}

func TestCrossTabSkipsUnplaceableRows(t *testing.T) {
	rows := []store.UtteranceRow{
		row(store.AgeTwenties, store.ModeCycle, store.PhaseMenstrual, monday, ""),
		row("50代", store.ModeCycle, store.PhaseMenstrual, monday, ""),
		orphan(monday, ""),
	}
	m := CrossTab(rows, AgeAxis(), ModeAxis())
	if m.Total != 1 || m.Skipped != 2 || m.Total+m.Skipped != len(rows) {
		t.Errorf("total=%d skipped=%d", m.Total, m.Skipped)
	}
	if sumCells(m.Cells) != m.Total {
		t.Errorf("cells sum %d != total %d", sumCells(m.Cells), m.Total)
	}
}

func TestCrossTabEmpty(t *testing.T) {
	m := CrossTab(nil, ModeAxis(), PhaseAxis())
	if len(m.Cells) != 8 || sumCells(m.Cells) != 0 {
		t.Errorf("empty input: %d cells, sum %d", len(m.Cells), sumCells(m.Cells))
	}
}

func TestPhaseWeekdayHeatmap(t *testing.T) {
	byPhase := map[store.CyclePhase][]store.UtteranceRow{
		store.PhaseMenstrual: {
			row(store.AgeTwenties, store.ModeCycle, store.PhaseMenstrual, monday, ""),
			row(store.AgeTwenties, store.ModeCycle, store.PhaseMenstrual, monday.AddDate(0, 0, 7), ""),
			row(store.AgeTwenties, store.ModeCycle, store.PhaseMenstrual, monday.AddDate(0, 0, 6), ""),
		},
	}
	cells := PhaseWeekdayHeatmap(byPhase)
	if len(cells) != 28 {
		t.Fatalf("got %d cells, want 28", len(cells))
	}
	nonZero := map[string]int{}
	for _, c := range cells {
		if c.Count > 0 {
			nonZero[c.Phase+"/"+c.Day] = c.Count
		}
	}
	want := map[string]int{"月経期/月": 2, "月経期/日": 1}
	if diff := cmp.Diff(want, nonZero); diff != "" {
		t.Errorf("non-zero cells (-want +got):\n%s", diff)
	}
}

func TestHourWeekdayHeatmap(t *testing.T) {
	rows := []store.UtteranceRow{
		orphan(monday, ""),
		orphan(monday.Add(time.Hour), ""),
		orphan(monday.AddDate(0, 0, 2), ""),
	}
	cells := HourWeekdayHeatmap(rows)
	if len(cells) != 24*7 {
		t.Fatalf("got %d cells", len(cells))
	}
	total := 0
	for _, c := range cells {
		total += c.Count
		if c.Hour == 10 && c.Day == "月" && c.Count != 1 {
			t.Errorf("10時/月 = %d", c.Count)
		}
		if c.Hour == 10 && c.Day == "水" && c.Count != 1 {
			t.Errorf("10時/水 = %d", c.Count)
		}
	}
	if total != len(rows) {
		t.Errorf("sum %d, want %d", total, len(rows))
	}
}

func TestMonthlyTrendKeepsMostRecent(t *testing.T) {
	var rows []store.UtteranceRow
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 14; i++ {
		rows = append(rows, orphan(start.AddDate(0, i, 0), ""))
	}
	rows = append(rows, orphan(start.AddDate(0, 13, 1), ""))

	got := MonthlyTrend(rows, MonthlyTrendLimit)
	if len(got) != 12 {
		t.Fatalf("got %d points, want 12", len(got))
	}
	if got[0].Month != "2024-03" || got[11].Month != "2025-02" {
		t.Errorf("range %s..%s, want 2024-03..2025-02", got[0].Month, got[11].Month)
	}
	if got[11].Count != 2 {
		t.Errorf("last month count = %d, want 2", got[11].Count)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Month >= got[i].Month {
			t.Fatalf("not ascending at %d: %v", i, got)
		}
	}
}

func TestCoOccurrence(t *testing.T) {
	contents := []string{
		"生理痛と頭痛がつらい",
		"生理痛で腹痛、頭痛もある",
		"生理痛に鎮痛剤",
		"生理痛と腹痛",
	}
	vocab := []string{"生理痛", "腹痛", "頭痛", "鎮痛剤", "睡眠"}
	got := CoOccurrence(contents, vocab, "生理痛", CoOccurrenceLimit)
	want := []KeywordCount{{"腹痛", 2}, {"頭痛", 2}, {"鎮痛剤", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CoOccurrence (-want +got):\n%s", diff)
	}
}

func TestCoOccurrenceLimit(t *testing.T) {
	var vocab []string
	var content string
	for i := 0; i < 15; i++ {
		term := fmt.Sprintf("語%02d", i)
		vocab = append(vocab, term)
		content += term
	}
	got := CoOccurrence([]string{content}, vocab, "", CoOccurrenceLimit)
	if len(got) != 10 {
		t.Fatalf("got %d, want 10", len(got))
	}
	if got[0].Keyword != "語00" || got[9].Keyword != "語09" {
		t.Errorf("ties not in vocabulary order: %v", got)
	}
}

func TestPeaks(t *testing.T) {
	if _, ok := PeakHour(nil); ok {
		t.Error("PeakHour on empty input should report false")
	}
	times := []time.Time{monday.Add(-2 * time.Hour), monday, monday.Add(-2 * time.Hour), monday}
	if h, ok := PeakHour(times); !ok || h != 8 {
		t.Errorf("PeakHour = %d, %v; want 8 (earliest tie)", h, ok)
	}
	times = []time.Time{monday.AddDate(0, 0, 6), monday.AddDate(0, 0, 2), monday.AddDate(0, 0, 6), monday.AddDate(0, 0, 2)}
	if d, ok := PeakWeekday(times); !ok || d != "水" {
		t.Errorf("PeakWeekday = %s, %v; want 水", d, ok)
	}
}
