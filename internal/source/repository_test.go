package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// MockRegistrationReader is a mock implementation of RegistrationReader
type MockRegistrationReader struct {
	mock.Mock
}

func (m *MockRegistrationReader) LoadRegistrations(ctx context.Context) ([]domain.RawRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawRecord), args.Error(1)
}

func TestRepositoryLoader_Load(t *testing.T) {
	reader := new(MockRegistrationReader)
	reader.On("LoadRegistrations", mock.Anything).Return([]domain.RawRecord{
		{domain.FieldRegistrantID: "r-1", domain.FieldEventID: "e-1"},
	}, nil).Once()

	loader := NewRepositoryLoader("clickhouse:analytics", reader)

	records, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "clickhouse:analytics", loader.Name())
	reader.AssertExpectations(t)
}

func TestRepositoryLoader_Load_Error(t *testing.T) {
	reader := new(MockRegistrationReader)
	storeErr := errors.New("connection reset")
	reader.On("LoadRegistrations", mock.Anything).Return(nil, storeErr)

	records, err := NewRepositoryLoader("clickhouse:analytics", reader).Load(context.Background())
	assert.Nil(t, records)
	assert.ErrorIs(t, err, storeErr)
}
