package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// IngestedRegistration is a raw registration landed by the queue consumer.
// MessageKey is derived from the payload so redelivered messages collapse in storage.
type IngestedRegistration struct {
	MessageKey string
	Record     RawRecord
	Payload    string
	IngestedAt time.Time
	Version    uint64
}

// StoredFields lists the raw fields persisted as columns, in column order
func StoredFields() []string {
	return []string{
		FieldRegistrantID,
		FieldRegistrationID,
		FieldEventID,
		FieldEventName,
		FieldRegisteredAt,
		FieldStatus,
		FieldCategory,
		FieldRegion,
		FieldTicketType,
		FieldPrice,
		FieldGender,
		FieldBirthDate,
		FieldVirtual,
	}
}

// MessageKey derives a stable key from the record content, so the same registration
// sent twice maps to the same key regardless of field order
func MessageKey(record RawRecord) (string, error) {
	// encoding/json sorts map keys
	canonical, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal registration: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
