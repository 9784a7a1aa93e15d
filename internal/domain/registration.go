package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Canonical field names of a raw registration row
const (
	FieldRegistrantID   = "registrant_id"
	FieldRegistrationID = "registration_id"
	FieldEventID        = "event_id"
	FieldEventName      = "event_name"
	FieldRegisteredAt   = "registered_at"
	FieldStatus         = "status"
	FieldCategory       = "category"
	FieldRegion         = "region"
	FieldTicketType     = "ticket_type"
	FieldPrice          = "price"
	FieldGender         = "gender"
	FieldBirthDate      = "birth_date"
	FieldVirtual        = "is_virtual"
)

// fieldAliases lists the column names used by the legacy CSV export for each field.
// The canonical name is always tried first.
var fieldAliases = map[string][]string{
	FieldRegistrantID:   {"ID", "id", "registrantId"},
	FieldRegistrationID: {"registrationId"},
	FieldEventID:        {"eventId", "eventName"},
	FieldEventName:      {"eventName"},
	FieldRegisteredAt:   {"registerDate", "registeredAt", "timestamp"},
	FieldCategory:       {"event_category", "eventCategory"},
	FieldRegion:         {"province"},
	FieldTicketType:     {"ticketTypeName"},
	FieldPrice:          {"ticketTypePrice"},
	FieldBirthDate:      {"birthDate"},
	FieldVirtual:        {"isVirtual"},
}

// RawRecord is a loosely typed registration row as produced by a loader or queue message
type RawRecord map[string]any

// Value returns the first present, non-empty value for field or one of its aliases
func (r RawRecord) Value(field string) (any, bool) {
	if v, ok := r[field]; ok && !isEmpty(v) {
		return v, true
	}
	for _, alias := range fieldAliases[field] {
		if v, ok := r[alias]; ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

// String returns the field rendered as a trimmed string, or "" when absent
func (r RawRecord) String(field string) string {
	v, ok := r.Value(field)
	if !ok {
		return ""
	}
	return Stringify(v)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Stringify renders a raw value as a trimmed string; unsupported types render as ""
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Status is the lifecycle state of a registration
type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
	StatusWaitlisted Status = "waitlisted"
	StatusUnknown    Status = "unknown"
)

// ParseStatus maps free-form status text onto the known set; anything else is StatusUnknown
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirmed", "confirm", "paid", "registered":
		return StatusConfirmed
	case "cancelled", "canceled", "cancel", "refunded":
		return StatusCancelled
	case "waitlisted", "waitlist", "wait-listed", "pending":
		return StatusWaitlisted
	default:
		return StatusUnknown
	}
}

// Statuses lists every status value in display order
func Statuses() []Status {
	return []Status{StatusConfirmed, StatusCancelled, StatusWaitlisted, StatusUnknown}
}

// CanonicalRecord is a validated registration. Seq is the position of the raw row it came from.
type CanonicalRecord struct {
	Seq            int
	RegistrantID   string
	RegistrationID string
	EventID        string
	EventName      string
	RegisteredAt   time.Time
	Status         Status
	Category       string
	Region         string
	Distance       string
	Gender         string
	AgeGroup       string
	PriceTier      string
	PriceMinor     int64
	Virtual        bool
}

// IdentityKey identifies "the same registration" across re-submissions
type IdentityKey string

// identityFields are the canonical fields that may take part in an identity key
var identityFields = map[string]func(CanonicalRecord) string{
	FieldRegistrantID:   func(c CanonicalRecord) string { return c.RegistrantID },
	FieldRegistrationID: func(c CanonicalRecord) string { return c.RegistrationID },
	FieldEventID:        func(c CanonicalRecord) string { return c.EventID },
	FieldEventName:      func(c CanonicalRecord) string { return c.EventName },
	FieldCategory:       func(c CanonicalRecord) string { return c.Category },
	FieldRegion:         func(c CanonicalRecord) string { return c.Region },
}

// IsIdentityField reports whether name can be used in an identity key
func IsIdentityField(name string) bool {
	_, ok := identityFields[name]
	return ok
}

// IdentityKey builds the key of c over the given fields. Unknown fields contribute an empty component.
func (c CanonicalRecord) IdentityKey(fields []string) IdentityKey {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if get, ok := identityFields[f]; ok {
			b.WriteString(get(c))
		}
	}
	return IdentityKey(b.String())
}
