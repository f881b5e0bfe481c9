package aggregate

import (
	"slices"

	"github.com/paveg/filmdash/internal/dataframe"
	"github.com/paveg/filmdash/internal/series"
)

// Pivot is a dense cross-tabulation of counts. Counts[i][j] belongs to
// Rows[i] and Columns[j]; absent combinations are zero.
type Pivot struct {
	RowKey    string   `json:"row_key"`
	ColumnKey string   `json:"column_key"`
	Rows      []string `json:"rows"`
	Columns   []string `json:"columns"`
	Counts    [][]int  `json:"counts"`
}

// Cell is one non-zero pivot entry in long form.
type Cell struct {
	Row    string `json:"row"`
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// At returns the count for the given row and column labels.
func (p *Pivot) At(row, column string) int {
	i := slices.Index(p.Rows, row)
	j := slices.Index(p.Columns, column)
	if i < 0 || j < 0 {
		return 0
	}
	return p.Counts[i][j]
}

// Long lists the non-zero cells row by row.
func (p *Pivot) Long() []Cell {
	cells := []Cell{}
	for i, row := range p.Rows {
		for j, column := range p.Columns {
			if n := p.Counts[i][j]; n > 0 {
				cells = append(cells, Cell{Row: row, Column: column, Count: n})
			}
		}
	}
	return cells
}

// PivotCount counts the non-null values of valueKey for every (rowKey,
// colKey) pair. Rows with a null row or column key are skipped. Row labels
// are sorted numerically when they are numbers, column labels
// lexicographically, and every label pair is present.
func PivotCount(df *dataframe.DataFrame, rowKey, colKey, valueKey string) (*Pivot, error) {
	columns := []string{rowKey, colKey}
	if valueKey != rowKey && valueKey != colKey {
		columns = append(columns, valueKey)
	}
	snap, err := snapshot(df, "PivotCount", columns...)
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	rowCol, _ := snap.Column(rowKey)
	colCol, _ := snap.Column(colKey)
	valueCol, _ := snap.Column(valueKey)
	rows, rowValid := series.Strings(rowCol)
	cols, colValid := series.Strings(colCol)

	type pair struct{ row, col string }
	counts := make(map[pair]int)
	rowSet := make(map[string]bool)
	colSet := make(map[string]bool)
	for i := range rows {
		if !rowValid[i] || !colValid[i] {
			continue
		}
		rowSet[rows[i]] = true
		colSet[cols[i]] = true
		if !valueCol.IsNull(i) {
			counts[pair{rows[i], cols[i]}]++
		}
	}

	pivot := &Pivot{
		RowKey:    rowKey,
		ColumnKey: colKey,
		Rows:      sortedKeys(rowSet, compareKeys),
		Columns:   sortedKeys(colSet, nil),
	}
	pivot.Counts = make([][]int, len(pivot.Rows))
	for i, row := range pivot.Rows {
		pivot.Counts[i] = make([]int, len(pivot.Columns))
		for j, col := range pivot.Columns {
			pivot.Counts[i][j] = counts[pair{row, col}]
		}
	}
	return pivot, nil
}

func sortedKeys(set map[string]bool, cmp func(a, b string) int) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	if cmp == nil {
		slices.Sort(keys)
	} else {
		slices.SortFunc(keys, cmp)
	}
	return keys
}
