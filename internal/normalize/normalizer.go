package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// Reason explains why a raw row was rejected
type Reason string

const (
	ReasonMissingField Reason = "missing_field"
	ReasonBadTimestamp Reason = "bad_timestamp"
)

// Reasons lists every rejection reason
func Reasons() []Reason {
	return []Reason{ReasonMissingField, ReasonBadTimestamp}
}

// Rejection describes a raw row that could not be turned into a CanonicalRecord
type Rejection struct {
	Seq    int
	Reason Reason
	Field  string
	Value  string
}

func (r *Rejection) Error() string {
	if r.Value != "" {
		return fmt.Sprintf("record %d rejected: %s on %s (%q)", r.Seq, r.Reason, r.Field, r.Value)
	}
	return fmt.Sprintf("record %d rejected: %s on %s", r.Seq, r.Reason, r.Field)
}

// timestampLayouts are tried in order for string timestamps without a numeric form.
// Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// compactLayouts parse all-digit dates, keyed by length. They are tried before the unix forms.
var compactLayouts = map[int]string{
	8:  "20060102",
	14: "20060102150405",
}

const (
	// minUnixSeconds (1973-03-03) is the smallest accepted epoch
	minUnixSeconds = 1e8
	// millisThreshold separates unix seconds from unix milliseconds in numeric timestamps
	millisThreshold = 1e12
)

// Normalizer turns raw rows into canonical records. It holds no state and is safe for concurrent use.
type Normalizer struct{}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize validates raw and returns its canonical form, or the reason it was rejected.
// seq is the row's position in the input batch.
func (n *Normalizer) Normalize(seq int, raw domain.RawRecord) (domain.CanonicalRecord, *Rejection) {
	registrantID := raw.String(domain.FieldRegistrantID)
	if registrantID == "" {
		return domain.CanonicalRecord{}, &Rejection{Seq: seq, Reason: ReasonMissingField, Field: domain.FieldRegistrantID}
	}

	eventID := raw.String(domain.FieldEventID)
	if eventID == "" {
		return domain.CanonicalRecord{}, &Rejection{Seq: seq, Reason: ReasonMissingField, Field: domain.FieldEventID}
	}

	tsValue, ok := raw.Value(domain.FieldRegisteredAt)
	if !ok {
		return domain.CanonicalRecord{}, &Rejection{Seq: seq, Reason: ReasonMissingField, Field: domain.FieldRegisteredAt}
	}

	registeredAt, err := parseTimestamp(tsValue)
	if err != nil {
		return domain.CanonicalRecord{}, &Rejection{
			Seq:    seq,
			Reason: ReasonBadTimestamp,
			Field:  domain.FieldRegisteredAt,
			Value:  raw.String(domain.FieldRegisteredAt),
		}
	}

	eventName := raw.String(domain.FieldEventName)
	if eventName == "" {
		eventName = eventID
	}

	category := raw.String(domain.FieldCategory)
	if category == "" {
		category = eventCategory(eventName)
	}

	region := raw.String(domain.FieldRegion)
	if region == "" {
		region = unknownValue
	}

	priceMinor := parsePriceMinor(raw.String(domain.FieldPrice))

	return domain.CanonicalRecord{
		Seq:            seq,
		RegistrantID:   registrantID,
		RegistrationID: raw.String(domain.FieldRegistrationID),
		EventID:        eventID,
		EventName:      eventName,
		RegisteredAt:   registeredAt,
		Status:         domain.ParseStatus(raw.String(domain.FieldStatus)),
		Category:       category,
		Region:         region,
		Distance:       distanceCategory(raw.String(domain.FieldTicketType)),
		Gender:         normalizeGender(raw.String(domain.FieldGender)),
		AgeGroup:       ageGroup(raw.String(domain.FieldBirthDate), registeredAt),
		PriceTier:      priceTier(priceMinor),
		PriceMinor:     priceMinor,
		Virtual:        parseBool(raw.String(domain.FieldVirtual)),
	}, nil
}

func parseTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, fmt.Errorf("zero time")
		}
		return val.UTC(), nil
	case float64:
		return fromUnix(val)
	case int64:
		return fromUnix(float64(val))
	case int:
		return fromUnix(float64(val))
	}

	s := domain.Stringify(v)
	if s == "" {
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}

	if layout, ok := compactLayouts[len(s)]; ok && isDigits(s) {
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid compact date %q: %w", s, err)
		}
		return t.UTC(), nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromUnix(f)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func fromUnix(f float64) (time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < minUnixSeconds {
		return time.Time{}, fmt.Errorf("invalid unix timestamp %v", f)
	}
	if f >= millisThreshold {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	return time.Unix(int64(f), 0).UTC(), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y", "t":
		return true
	default:
		return false
	}
}
