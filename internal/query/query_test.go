package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/registration-analytics-service/internal/aggregate"
	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func buildTable(t *testing.T) *aggregate.Table {
	t.Helper()

	type row struct {
		registrant string
		event      string
		category   string
		region     string
		at         time.Time
		status     domain.Status
	}
	rows := []row{
		{"u1", "A", "Marathon", "Bangkok", day(1, 1), domain.StatusConfirmed},
		{"u2", "A", "Marathon", "Phuket", day(1, 1), domain.StatusCancelled},
		{"u3", "B", "Fun Run", "Bangkok", day(1, 15), domain.StatusConfirmed},
		{"u1", "B", "Fun Run", "Bangkok", day(1, 20), domain.StatusWaitlisted},
		{"u4", "C", "Trail Run", "Chiang Mai", day(2, 3), domain.StatusConfirmed},
		{"u5", "C", "Trail Run", "Chiang Mai", day(2, 4), domain.StatusUnknown},
		{"u6", "A", "Marathon", "Bangkok", day(2, 10), domain.StatusConfirmed},
	}

	records := make([]domain.CanonicalRecord, 0, len(rows))
	for i, r := range rows {
		records = append(records, domain.CanonicalRecord{
			Seq:          i,
			RegistrantID: r.registrant,
			EventID:      r.event,
			EventName:    r.event,
			RegisteredAt: r.at,
			Status:       r.status,
			Category:     r.category,
			Region:       r.region,
			PriceMinor:   50000,
		})
	}

	table, err := aggregate.Build(records, aggregate.Options{})
	require.NoError(t, err)
	return table
}

func TestRun_UnfilteredTotalsEqualTableTotals(t *testing.T) {
	table := buildTable(t)

	res, err := Run(table, FilterSpec{})
	require.NoError(t, err)

	assert.True(t, res.Totals.Equal(table.Totals()))
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(7), res.Rows[0].Metrics.Count)
	assert.Equal(t, uint64(6), res.Totals.DistinctRegistrants())
}

func TestRun_NarrowingFiltersNeverExceedTotals(t *testing.T) {
	table := buildTable(t)
	all := table.Totals()

	specs := []FilterSpec{
		{Where: map[string][]string{"region": {"Bangkok"}}},
		{Where: map[string][]string{"region": {"Bangkok", "Phuket"}, "category": {"Marathon"}}},
		{From: day(1, 10), To: day(1, 31)},
		{From: day(2, 1), Where: map[string][]string{"status": {"confirmed"}}},
		{Where: map[string][]string{"event": {"Z"}}},
	}

	for i, spec := range specs {
		t.Run(fmt.Sprintf("spec_%d", i), func(t *testing.T) {
			res, err := Run(table, spec)
			require.NoError(t, err)

			assert.LessOrEqual(t, res.Totals.Count, all.Count)
			assert.LessOrEqual(t, res.Totals.Confirmed, all.Confirmed)
			assert.LessOrEqual(t, res.Totals.DistinctRegistrants(), all.DistinctRegistrants())
			assert.LessOrEqual(t, res.Totals.RevenueMinor, all.RevenueMinor)
		})
	}
}

func TestRun_FilterSemantics(t *testing.T) {
	table := buildTable(t)

	res, err := Run(table, FilterSpec{
		GroupBy: []string{"region"},
		Where:   map[string][]string{"region": {"Bangkok", "Phuket"}, "category": {"Marathon"}},
	})
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"Bangkok"}, res.Rows[0].Values)
	assert.Equal(t, int64(2), res.Rows[0].Metrics.Count)
	assert.Equal(t, []string{"Phuket"}, res.Rows[1].Values)
	assert.Equal(t, int64(1), res.Rows[1].Metrics.Count)
	assert.Equal(t, int64(3), res.Totals.Count)
}

func TestRun_MonthlyGroupingMatchesDailySelection(t *testing.T) {
	table := buildTable(t)

	monthly, err := Run(table, FilterSpec{GroupBy: []string{"month", "category"}})
	require.NoError(t, err)

	daily, err := Run(table, FilterSpec{GroupBy: []string{"day", "category"}})
	require.NoError(t, err)

	sums := map[string]int64{}
	for _, r := range daily.Rows {
		key := aggregate.GranularityMonth.Truncate(r.Start).Format("2006-01") + "/" + r.Values[0]
		sums[key] += r.Metrics.Count
	}
	for _, r := range monthly.Rows {
		key := r.Start.Format("2006-01") + "/" + r.Values[0]
		assert.Equal(t, sums[key], r.Metrics.Count, key)
	}
	assert.Equal(t, aggregate.GranularityMonth, monthly.Granularity)
	assert.Equal(t, []aggregate.Dimension{aggregate.DimCategory}, monthly.GroupBy)
}

func TestRun_TimeRangeIsInclusiveByDay(t *testing.T) {
	table := buildTable(t)

	res, err := Run(table, FilterSpec{
		From: day(1, 15).Add(13 * time.Hour),
		To:   day(2, 3).Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.Totals.Count)
}

func TestRun_EmptySelection(t *testing.T) {
	table := buildTable(t)

	res, err := Run(table, FilterSpec{From: day(6, 1), GroupBy: []string{"week"}})
	require.NoError(t, err)

	assert.Empty(t, res.Rows)
	assert.Equal(t, int64(0), res.Totals.Count)
	assert.Equal(t, uint64(0), res.Totals.DistinctRegistrants())
}

func TestRun_TopEvents(t *testing.T) {
	table := buildTable(t)

	res, err := Run(table, FilterSpec{GroupBy: []string{"event"}, TopN: 2, SortBy: SortCountDesc})
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.True(t, res.Truncated)
	assert.Equal(t, []string{"A"}, res.Rows[0].Values)
	assert.Equal(t, int64(3), res.Rows[0].Metrics.Count)
	// B and C tie on count and keep natural order
	assert.Equal(t, []string{"B"}, res.Rows[1].Values)
	assert.Equal(t, int64(7), res.Totals.Count)
}

func TestRun_InvalidFilter(t *testing.T) {
	table := buildTable(t)

	tests := []struct {
		name string
		spec FilterSpec
	}{
		{name: "unknown group_by", spec: FilterSpec{GroupBy: []string{"shoe_size"}}},
		{name: "unknown where", spec: FilterSpec{Where: map[string][]string{"shoe_size": {"42"}}}},
		{name: "two granularities", spec: FilterSpec{GroupBy: []string{"day", "month"}}},
		{name: "duplicate group_by", spec: FilterSpec{GroupBy: []string{"region", "region"}}},
		{name: "from after to", spec: FilterSpec{From: day(2, 1), To: day(1, 1)}},
		{name: "negative top", spec: FilterSpec{TopN: -1}},
		{name: "unknown sort", spec: FilterSpec{SortBy: "random"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(table, tt.spec)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestRun_DimensionNotAggregated(t *testing.T) {
	table, err := aggregate.Build(nil, aggregate.Options{Dimensions: []aggregate.Dimension{aggregate.DimRegion}})
	require.NoError(t, err)

	err = FilterSpec{GroupBy: []string{"category"}}.Validate(table)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestFilterSpec_Key(t *testing.T) {
	a := FilterSpec{
		From:  day(1, 1).Add(5 * time.Hour),
		Where: map[string][]string{"region": {"Phuket", "Bangkok", "Bangkok"}, "category": {"Marathon"}},
	}
	b := FilterSpec{
		From:  day(1, 1),
		Where: map[string][]string{"category": {"Marathon"}, "region": {"Bangkok", "Phuket"}, "status": {}},
	}
	c := FilterSpec{From: day(1, 1), Where: map[string][]string{"region": {"Bangkok"}}}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, FilterSpec{GroupBy: []string{"region", "day"}}.Key(), FilterSpec{GroupBy: []string{"day", "region"}}.Key())
}

func TestFilterSpec_Key_DelimitersInValues(t *testing.T) {
	pairs := []struct {
		name string
		a, b FilterSpec
	}{
		{
			name: "value spelling a second dimension",
			a:    FilterSpec{Where: map[string][]string{"category": {"a|region=b"}}},
			b:    FilterSpec{Where: map[string][]string{"category": {"a"}, "region": {"b"}}},
		},
		{
			name: "value containing the list separator",
			a:    FilterSpec{Where: map[string][]string{"category": {"a\x1fb"}}},
			b:    FilterSpec{Where: map[string][]string{"category": {"a", "b"}}},
		},
		{
			name: "value containing a comma",
			a:    FilterSpec{Where: map[string][]string{"category": {"a,b"}}},
			b:    FilterSpec{Where: map[string][]string{"category": {"a", "b"}}},
		},
		{
			name: "group_by entry containing a separator",
			a:    FilterSpec{GroupBy: []string{"region\x1fstatus"}},
			b:    FilterSpec{GroupBy: []string{"region", "status"}},
		},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, tt.a.Key(), tt.b.Key())
		})
	}
}

func TestRun_DelimiterValueSelectsOnlyExactMatch(t *testing.T) {
	records := []domain.CanonicalRecord{{
		RegistrantID: "u1",
		EventID:      "A",
		RegisteredAt: day(1, 1),
		Status:       domain.StatusConfirmed,
		Category:     "a|region=b",
		Region:       "c",
	}}
	table, err := aggregate.Build(records, aggregate.Options{})
	require.NoError(t, err)

	exact, err := Run(table, FilterSpec{Where: map[string][]string{"category": {"a|region=b"}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), exact.Totals.Count)

	split, err := Run(table, FilterSpec{Where: map[string][]string{"category": {"a"}, "region": {"b"}}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), split.Totals.Count)
}
