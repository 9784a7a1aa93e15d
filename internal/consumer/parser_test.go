package consumer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

func TestJSONRegistrationParser_Parse(t *testing.T) {
	parser := NewJSONRegistrationParser()
	fixed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	parser.now = func() time.Time { return fixed }

	body := []byte(`{"ID": "r-1", "eventName": "Bangkok Marathon", "registerDate": "2024-02-10 09:15:00", "ticketTypePrice": 1200.50, "isVirtual": false}`)

	reg, err := parser.Parse(body)
	require.NoError(t, err)

	assert.Equal(t, "r-1", reg.Record.String(domain.FieldRegistrantID))
	assert.Equal(t, "Bangkok Marathon", reg.Record.String(domain.FieldEventID))
	assert.Equal(t, "1200.50", reg.Record.String(domain.FieldPrice))
	assert.Equal(t, json.Number("1200.50"), reg.Record["ticketTypePrice"])
	assert.Equal(t, "false", reg.Record.String(domain.FieldVirtual))
	assert.Equal(t, string(body), reg.Payload)
	assert.Equal(t, fixed, reg.IngestedAt)
	assert.Equal(t, uint64(fixed.UnixNano()), reg.Version)
	assert.Len(t, reg.MessageKey, 64)
}

func TestJSONRegistrationParser_Parse_KeyIgnoresFieldOrder(t *testing.T) {
	parser := NewJSONRegistrationParser()

	a, err := parser.Parse([]byte(`{"registrant_id": "r-1", "event_id": "e-1", "price": 100}`))
	require.NoError(t, err)
	b, err := parser.Parse([]byte(`{"price": 100, "event_id": "e-1", "registrant_id": "r-1"}`))
	require.NoError(t, err)
	c, err := parser.Parse([]byte(`{"registrant_id": "r-1", "event_id": "e-2", "price": 100}`))
	require.NoError(t, err)

	assert.Equal(t, a.MessageKey, b.MessageKey)
	assert.NotEqual(t, a.MessageKey, c.MessageKey)
}

func TestJSONRegistrationParser_Parse_Errors(t *testing.T) {
	parser := NewJSONRegistrationParser()

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{invalid}`},
		{name: "array", body: `[1, 2, 3]`},
		{name: "empty object", body: `{}`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := parser.Parse([]byte(tt.body))
			assert.Error(t, err)
			assert.Nil(t, reg)
		})
	}

	_, err := parser.Parse([]byte(`{}`))
	assert.ErrorIs(t, err, ErrEmptyRegistration)
}
