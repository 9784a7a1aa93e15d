package clickhouse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

func TestRegistrationsDDL(t *testing.T) {
	ddl := registrationsDDL()

	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS registrations")
	assert.Contains(t, ddl, "ReplacingMergeTree(version)")
	assert.Contains(t, ddl, "status LowCardinality(String),")
	assert.Contains(t, ddl, "registered_at String,")
	for _, f := range domain.StoredFields() {
		assert.Contains(t, ddl, "\t"+f+" ", f)
	}
}

func TestRegistrationColumns(t *testing.T) {
	cols := strings.Split(registrationColumns(), ", ")

	assert.Equal(t, "message_key", cols[0])
	assert.Equal(t, domain.StoredFields(), cols[1:len(cols)-3])
	assert.Equal(t, []string{"payload", "ingested_at", "version"}, cols[len(cols)-3:])
}
