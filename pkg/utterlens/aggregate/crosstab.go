package aggregate

import "github.com/cognicore/utterlens/pkg/utterlens/store"

// Axis is one dimension of a cross-tab: a declared domain and the key
// extractor for rows.
type Axis struct {
	Values []string
	Key    KeyFunc
}

// AgeAxis spans the declared age groups.
func AgeAxis() Axis {
	var vals []string
	for _, v := range store.AllAgeGroups() {
		vals = append(vals, string(v))
	}
	return Axis{Values: vals, Key: ByAgeGroup}
}

// ModeAxis spans the declared modes.
func ModeAxis() Axis {
	var vals []string
	for _, v := range store.AllModes() {
		vals = append(vals, string(v))
	}
	return Axis{Values: vals, Key: ByMode}
}

// PhaseAxis spans the declared cycle phases.
func PhaseAxis() Axis {
	var vals []string
	for _, v := range store.AllCyclePhases() {
		vals = append(vals, string(v))
	}
	return Axis{Values: vals, Key: ByCyclePhase}
}

// Cell is one cross-tab entry.
type Cell struct {
	Row   string `json:"row"`
	Col   string `json:"col"`
	Count int    `json:"count"`
}

// Matrix is a zero-filled cross-tab in row-major declared order.
// Total is the sum of all cells; Skipped counts rows that could not be
// placed (orphans or values outside the domains). Total+Skipped equals
// the number of rows fed in.
type Matrix struct {
	Cells   []Cell `json:"cells"`
	Total   int    `json:"total"`
	Skipped int    `json:"skipped"`
}

// CrossTab counts rows for every (row, col) pair of the two axes. Every
// pair is present even when its count is zero.
func CrossTab(rows []store.UtteranceRow, rowAxis, colAxis Axis) Matrix {
	rowIdx := indexOf(rowAxis.Values)
	colIdx := indexOf(colAxis.Values)
	counts := make([]int, len(rowAxis.Values)*len(colAxis.Values))

	var m Matrix
	for _, r := range rows {
		rk, ok1 := rowAxis.Key(r)
		ck, ok2 := colAxis.Key(r)
		ri, ok3 := rowIdx[rk]
		ci, ok4 := colIdx[ck]
		if !ok1 || !ok2 || !ok3 || !ok4 {
			m.Skipped++
			continue
		}
		counts[ri*len(colAxis.Values)+ci]++
		m.Total++
	}

	m.Cells = make([]Cell, 0, len(counts))
	for i, rv := range rowAxis.Values {
		for j, cv := range colAxis.Values {
			m.Cells = append(m.Cells, Cell{Row: rv, Col: cv, Count: counts[i*len(colAxis.Values)+j]})
		}
	}
	return m
}

func indexOf(values []string) map[string]int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[v] = i
	}
	return idx
}
