package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// ErrMalformedSnapshot is returned when a record set cannot be aggregated as a whole
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Options configures a build
type Options struct {
	// Dimensions kept at the finest grain. Empty means every supported dimension.
	Dimensions []Dimension
}

// Cell is a finest-grain bucket: one UTC day and one value per table dimension
type Cell struct {
	Day     time.Time
	Values  []string
	Metrics Metrics
}

// Value returns the cell's value for the dimension at index i
func (c Cell) Value(i int) string {
	return c.Values[i]
}

// Group is a bucket produced by summing cells
type Group struct {
	// Start is the bucket start, zero when the time axis is collapsed or cyclic
	Start time.Time
	// Bucket labels the time bucket: the start day, or the weekday name. Empty when collapsed.
	Bucket  string
	Values  []string
	Metrics Metrics

	ordinal int64
}

// Table is an immutable aggregate built from one record set. Cells are sorted by day, then dimension values.
type Table struct {
	dims   []Dimension
	index  map[Dimension]int
	cells  []Cell
	totals Metrics
	first  time.Time
	last   time.Time
}

// Build aggregates records into daily cells. The same input always yields an identical table.
func Build(records []domain.CanonicalRecord, opts Options) (*Table, error) {
	dims := opts.Dimensions
	if len(dims) == 0 {
		dims = Dimensions()
	}

	index := make(map[Dimension]int, len(dims))
	for i, d := range dims {
		if _, ok := ParseDimension(string(d)); !ok {
			return nil, fmt.Errorf("unsupported dimension: %s", d)
		}
		if _, dup := index[d]; dup {
			return nil, fmt.Errorf("duplicate dimension: %s", d)
		}
		index[d] = i
	}

	for _, r := range records {
		if err := checkRecord(r); err != nil {
			return nil, err
		}
	}

	registrants := internRegistrants(records)

	groups := make(map[string]*Cell)
	var key strings.Builder
	for _, r := range records {
		day := GranularityDay.Truncate(r.RegisteredAt)
		values := make([]string, len(dims))
		for i, d := range dims {
			values[i] = d.valueOf(r)
		}

		writeKey(&key, day.Unix(), values)

		cell, ok := groups[key.String()]
		if !ok {
			cell = &Cell{Day: day, Values: values}
			groups[key.String()] = cell
		}
		cell.Metrics.addRecord(r, registrants[r.RegistrantID])
	}

	cells := make([]Cell, 0, len(groups))
	for _, c := range groups {
		cells = append(cells, *c)
	}
	sort.Slice(cells, func(i, j int) bool {
		return lessBucket(cells[i].Day, cells[i].Values, cells[j].Day, cells[j].Values)
	})

	t := &Table{
		dims:  append([]Dimension(nil), dims...),
		index: index,
		cells: cells,
	}
	for _, c := range cells {
		t.totals.Merge(c.Metrics)
	}
	if len(cells) > 0 {
		t.first = cells[0].Day
		t.last = cells[len(cells)-1].Day
	}

	return t, nil
}

func checkRecord(r domain.CanonicalRecord) error {
	switch {
	case r.RegisteredAt.IsZero():
		return fmt.Errorf("%w: record %d has no timestamp", ErrMalformedSnapshot, r.Seq)
	case r.RegistrantID == "":
		return fmt.Errorf("%w: record %d has no registrant", ErrMalformedSnapshot, r.Seq)
	case r.EventID == "":
		return fmt.Errorf("%w: record %d has no event", ErrMalformedSnapshot, r.Seq)
	}
	return nil
}

// internRegistrants assigns dense ids to registrants in sorted order so bitmaps do not depend on input order
func internRegistrants(records []domain.CanonicalRecord) map[string]uint32 {
	ids := make(map[string]uint32, len(records))
	for _, r := range records {
		ids[r.RegistrantID] = 0
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	for i, id := range sorted {
		ids[id] = uint32(i)
	}
	return ids
}

// writeKey writes a bucket key for ordinal and values. Values are length-prefixed,
// so separators inside them cannot make two buckets share a key.
func writeKey(b *strings.Builder, ordinal int64, values []string) {
	b.Reset()
	b.WriteString(strconv.FormatInt(ordinal, 10))
	for _, v := range values {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
}

func lessBucket(aStart time.Time, aValues []string, bStart time.Time, bValues []string) bool {
	if !aStart.Equal(bStart) {
		return aStart.Before(bStart)
	}
	return lessValues(aValues, bValues)
}

func lessValues(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Dimensions returns the dimensions kept by the table, in cell value order
func (t *Table) Dimensions() []Dimension {
	return append([]Dimension(nil), t.dims...)
}

// DimensionIndex returns the position of d in a cell's values
func (t *Table) DimensionIndex(d Dimension) (int, bool) {
	i, ok := t.index[d]
	return i, ok
}

// Cells returns the finest-grain cells. Callers must not modify them.
func (t *Table) Cells() []Cell {
	return t.cells
}

// Totals returns the metrics of the whole table
func (t *Table) Totals() Metrics {
	return t.totals
}

// Span returns the first and last day holding data; both are zero for an empty table
func (t *Table) Span() (time.Time, time.Time) {
	return t.first, t.last
}

// Equal reports whether t and o hold identical cells
func (t *Table) Equal(o *Table) bool {
	if len(t.dims) != len(o.dims) || len(t.cells) != len(o.cells) {
		return false
	}
	for i := range t.dims {
		if t.dims[i] != o.dims[i] {
			return false
		}
	}
	for i := range t.cells {
		a, b := t.cells[i], o.cells[i]
		if !a.Day.Equal(b.Day) || lessBucket(a.Day, a.Values, b.Day, b.Values) || lessBucket(b.Day, b.Values, a.Day, a.Values) {
			return false
		}
		if !a.Metrics.Equal(b.Metrics) {
			return false
		}
	}
	return t.totals.Equal(o.totals)
}

// Rollup sums cells into buckets of granularity g grouped by the given dimensions.
// Groups are ordered by bucket (Monday first for weekdays), then dimension values.
func (t *Table) Rollup(cells []Cell, g Granularity, by []Dimension) ([]Group, error) {
	positions := make([]int, len(by))
	for i, d := range by {
		pos, ok := t.index[d]
		if !ok {
			return nil, fmt.Errorf("dimension %s is not kept by this table", d)
		}
		positions[i] = pos
	}

	groups := make(map[string]*Group)
	var key strings.Builder
	for _, c := range cells {
		start, ordinal, label := g.bucket(c.Day)

		values := make([]string, len(positions))
		for i, pos := range positions {
			values[i] = c.Values[pos]
		}
		writeKey(&key, ordinal, values)

		group, ok := groups[key.String()]
		if !ok {
			group = &Group{Start: start, Bucket: label, Values: values, ordinal: ordinal}
			groups[key.String()] = group
		}
		group.Metrics.Merge(c.Metrics)
	}

	out := make([]Group, 0, len(groups))
	for _, grp := range groups {
		out = append(out, *grp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ordinal != out[j].ordinal {
			return out[i].ordinal < out[j].ordinal
		}
		return lessValues(out[i].Values, out[j].Values)
	})

	return out, nil
}

// Series returns the whole table summed into time buckets of granularity g
func (t *Table) Series(g Granularity) []Group {
	groups, _ := t.Rollup(t.cells, g, nil)
	return groups
}
