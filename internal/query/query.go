package query

import (
	"sort"

	"github.com/BarkinBalci/registration-analytics-service/internal/aggregate"
)

// ResultSlice is the answer to one FilterSpec. It is shared between callers and must not be modified.
type ResultSlice struct {
	SnapshotVersion int64
	Granularity     aggregate.Granularity
	GroupBy         []aggregate.Dimension
	Rows            []aggregate.Group
	// Totals cover every selected cell, including rows dropped by TopN
	Totals    aggregate.Metrics
	Truncated bool
}

// Run selects the finest-grain cells of table matching spec and sums them into the requested grouping.
// An empty selection is a valid result with no rows and zero totals.
func Run(table *aggregate.Table, spec FilterSpec) (*ResultSlice, error) {
	p, err := spec.plan(table)
	if err != nil {
		return nil, err
	}

	selected := selectCells(table.Cells(), p)

	rows, err := table.Rollup(selected, p.granularity, p.groupBy)
	if err != nil {
		return nil, invalid("%v", err)
	}

	result := &ResultSlice{
		Granularity: p.granularity,
		GroupBy:     p.groupBy,
	}
	for _, c := range selected {
		result.Totals.Merge(c.Metrics)
	}

	if spec.SortBy == SortCountDesc {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Metrics.Count > rows[j].Metrics.Count
		})
	}
	if spec.TopN > 0 && len(rows) > spec.TopN {
		rows = rows[:spec.TopN]
		result.Truncated = true
	}
	result.Rows = rows

	return result, nil
}

// selectCells returns the cells inside the day range that satisfy every predicate.
// Cells are sorted by day, so the range is located by binary search.
func selectCells(cells []aggregate.Cell, p plan) []aggregate.Cell {
	start := 0
	if !p.from.IsZero() {
		start = sort.Search(len(cells), func(i int) bool {
			return !cells[i].Day.Before(p.from)
		})
	}
	end := len(cells)
	if !p.to.IsZero() {
		end = sort.Search(len(cells), func(i int) bool {
			return cells[i].Day.After(p.to)
		})
	}
	if start >= end {
		return nil
	}

	var out []aggregate.Cell
	for _, c := range cells[start:end] {
		if matches(c, p.predicates) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c aggregate.Cell, predicates []predicate) bool {
	for _, pr := range predicates {
		if _, ok := pr.values[c.Value(pr.position)]; !ok {
			return false
		}
	}
	return true
}
