package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/BarkinBalci/registration-analytics-service/internal/aggregate"
)

// ErrInvalidFilter is returned for filter specs that reference unknown dimensions or are inconsistent
var ErrInvalidFilter = errors.New("invalid filter")

// SortOrder controls row ordering before TopN truncation
type SortOrder string

const (
	// SortNatural keeps rows ordered by bucket start, then dimension values
	SortNatural   SortOrder = ""
	SortCountDesc SortOrder = "count_desc"
)

// FilterSpec is a declarative selection over an aggregate table. Zero fields mean no restriction.
type FilterSpec struct {
	// From and To bound the selection by UTC day, both inclusive
	From time.Time
	To   time.Time
	// GroupBy holds dimension names and at most one time granularity (day, week, month)
	GroupBy []string
	// Where restricts dimensions to a set of values. Values within a dimension are ORed,
	// dimensions are ANDed. An empty value list is no restriction.
	Where  map[string][]string
	TopN   int
	SortBy SortOrder
}

type predicate struct {
	position int
	values   map[string]struct{}
}

type plan struct {
	from        time.Time
	to          time.Time
	granularity aggregate.Granularity
	groupBy     []aggregate.Dimension
	predicates  []predicate
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFilter, fmt.Sprintf(format, args...))
}

// Validate checks the spec against the dimensions kept by table
func (s FilterSpec) Validate(table *aggregate.Table) error {
	_, err := s.plan(table)
	return err
}

func (s FilterSpec) plan(table *aggregate.Table) (plan, error) {
	var p plan

	if !s.From.IsZero() && !s.To.IsZero() && s.From.After(s.To) {
		return p, invalid("from %s is after to %s", s.From.Format(time.RFC3339), s.To.Format(time.RFC3339))
	}
	if !s.From.IsZero() {
		p.from = aggregate.GranularityDay.Truncate(s.From)
	}
	if !s.To.IsZero() {
		p.to = aggregate.GranularityDay.Truncate(s.To)
	}

	if s.TopN < 0 {
		return p, invalid("top must not be negative")
	}
	switch s.SortBy {
	case SortNatural, SortCountDesc:
	default:
		return p, invalid("unsupported sort %q", s.SortBy)
	}

	seen := make(map[string]struct{}, len(s.GroupBy))
	for _, name := range s.GroupBy {
		if _, dup := seen[name]; dup {
			return p, invalid("duplicate group_by entry %q", name)
		}
		seen[name] = struct{}{}

		if g, ok := aggregate.ParseGranularity(name); ok {
			if p.granularity != aggregate.GranularityNone {
				return p, invalid("more than one time granularity in group_by")
			}
			p.granularity = g
			continue
		}

		d, err := tableDimension(table, name)
		if err != nil {
			return p, err
		}
		p.groupBy = append(p.groupBy, d)
	}

	for _, name := range sortedKeys(s.Where) {
		values := s.Where[name]
		if len(values) == 0 {
			continue
		}

		d, err := tableDimension(table, name)
		if err != nil {
			return p, err
		}
		pos, _ := table.DimensionIndex(d)

		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		p.predicates = append(p.predicates, predicate{position: pos, values: set})
	}

	return p, nil
}

func tableDimension(table *aggregate.Table, name string) (aggregate.Dimension, error) {
	d, ok := aggregate.ParseDimension(name)
	if !ok {
		return "", invalid("unknown dimension %q", name)
	}
	if _, kept := table.DimensionIndex(d); !kept {
		return "", invalid("dimension %q is not aggregated", name)
	}
	return d, nil
}

type specKey struct {
	From    string              `json:"from,omitempty"`
	To      string              `json:"to,omitempty"`
	GroupBy []string            `json:"group_by,omitempty"`
	Where   map[string][]string `json:"where,omitempty"`
	TopN    int                 `json:"top,omitempty"`
	SortBy  SortOrder           `json:"sort,omitempty"`
}

// Key returns a canonical string identifying the spec. Specs selecting the same slice share a key.
// Values are JSON encoded, so delimiters inside dimension values cannot collide with other specs.
func (s FilterSpec) Key() string {
	k := specKey{
		GroupBy: s.GroupBy,
		TopN:    s.TopN,
		SortBy:  s.SortBy,
	}
	if !s.From.IsZero() {
		k.From = aggregate.GranularityDay.Truncate(s.From).Format(time.DateOnly)
	}
	if !s.To.IsZero() {
		k.To = aggregate.GranularityDay.Truncate(s.To).Format(time.DateOnly)
	}

	for name, values := range s.Where {
		if len(values) == 0 {
			continue
		}
		if k.Where == nil {
			k.Where = make(map[string][]string, len(s.Where))
		}
		k.Where[name] = uniqueSorted(values)
	}

	// encoding/json sorts map keys
	b, err := json.Marshal(k)
	if err != nil {
		return fmt.Sprintf("%#v", k)
	}
	return string(b)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uniqueSorted(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)

	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
