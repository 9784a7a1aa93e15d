package aggregate

import (
	"time"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// Dimension is a categorical attribute cells can be grouped and filtered by
type Dimension string

const (
	DimCategory  Dimension = "category"
	DimRegion    Dimension = "region"
	DimStatus    Dimension = "status"
	DimEvent     Dimension = "event"
	DimDistance  Dimension = "distance"
	DimGender    Dimension = "gender"
	DimAgeGroup  Dimension = "age_group"
	DimPriceTier Dimension = "price_tier"
)

var dimensionValues = map[Dimension]func(domain.CanonicalRecord) string{
	DimCategory:  func(r domain.CanonicalRecord) string { return r.Category },
	DimRegion:    func(r domain.CanonicalRecord) string { return r.Region },
	DimStatus:    func(r domain.CanonicalRecord) string { return string(r.Status) },
	DimEvent:     func(r domain.CanonicalRecord) string { return r.EventID },
	DimDistance:  func(r domain.CanonicalRecord) string { return r.Distance },
	DimGender:    func(r domain.CanonicalRecord) string { return r.Gender },
	DimAgeGroup:  func(r domain.CanonicalRecord) string { return r.AgeGroup },
	DimPriceTier: func(r domain.CanonicalRecord) string { return r.PriceTier },
}

// Dimensions returns every supported dimension in schema order
func Dimensions() []Dimension {
	return []Dimension{DimCategory, DimRegion, DimStatus, DimEvent, DimDistance, DimGender, DimAgeGroup, DimPriceTier}
}

// ParseDimension reports whether s names a supported dimension
func ParseDimension(s string) (Dimension, bool) {
	d := Dimension(s)
	_, ok := dimensionValues[d]
	return d, ok
}

func (d Dimension) valueOf(r domain.CanonicalRecord) string {
	return dimensionValues[d](r)
}

// Granularity is the width of a time bucket
type Granularity string

const (
	// GranularityNone collapses the time axis into a single bucket
	GranularityNone  Granularity = ""
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	// GranularityWeekday folds every day onto its day of the week, Monday first
	GranularityWeekday Granularity = "weekday"
)

// ParseGranularity reports whether s names a time granularity
func ParseGranularity(s string) (Granularity, bool) {
	switch g := Granularity(s); g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityWeekday:
		return g, true
	default:
		return GranularityNone, false
	}
}

// Cyclic reports whether buckets repeat over time instead of covering a single span
func (g Granularity) Cyclic() bool {
	return g == GranularityWeekday
}

// Truncate returns the start of the bucket containing t, in UTC. Weeks start on Monday.
// Cyclic granularities have no start and return the zero time.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	switch g {
	case GranularityDay:
		return day
	case GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

// End returns the exclusive end of the bucket starting at start
func (g Granularity) End(start time.Time) time.Time {
	switch g {
	case GranularityDay:
		return start.AddDate(0, 0, 1)
	case GranularityWeek:
		return start.AddDate(0, 0, 7)
	case GranularityMonth:
		return start.AddDate(0, 1, 0)
	default:
		return time.Time{}
	}
}

// bucket places day in a bucket of g. ordinal orders buckets; label names them in responses.
func (g Granularity) bucket(day time.Time) (start time.Time, ordinal int64, label string) {
	if g == GranularityWeekday {
		wd := day.UTC().Weekday()
		return time.Time{}, int64((wd + 6) % 7), wd.String()
	}

	start = g.Truncate(day)
	if start.IsZero() {
		return start, 0, ""
	}
	return start, start.Unix(), start.Format(time.DateOnly)
}
