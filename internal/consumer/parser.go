package consumer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

var ErrEmptyRegistration = errors.New("registration message has no fields")

// JSONRegistrationParser implements MessageParser for JSON-formatted registration messages
type JSONRegistrationParser struct {
	now func() time.Time
}

// NewJSONRegistrationParser creates a new JSON registration parser
func NewJSONRegistrationParser() *JSONRegistrationParser {
	return &JSONRegistrationParser{now: time.Now}
}

// Parse parses a JSON object into a raw registration. Values are kept as sent;
// normalization happens when a snapshot is built.
func (p *JSONRegistrationParser) Parse(body []byte) (*domain.IngestedRegistration, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var record domain.RawRecord
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}
	if len(record) == 0 {
		return nil, ErrEmptyRegistration
	}

	key, err := domain.MessageKey(record)
	if err != nil {
		return nil, err
	}

	now := p.now()
	return &domain.IngestedRegistration{
		MessageKey: key,
		Record:     record,
		Payload:    string(body),
		IngestedAt: now.UTC(),
		Version:    uint64(now.UnixNano()),
	}, nil
}
