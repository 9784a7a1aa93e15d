package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/dto"
	"github.com/BarkinBalci/registration-analytics-service/internal/engine"
	"github.com/BarkinBalci/registration-analytics-service/internal/query"
	"github.com/BarkinBalci/registration-analytics-service/internal/repository"
	"github.com/BarkinBalci/registration-analytics-service/internal/telemetry"
)

// MockLoader is a mock implementation of Loader
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLoader) Load(ctx context.Context) ([]domain.RawRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawRecord), args.Error(1)
}

// MockAggregateStore is a mock implementation of AggregateStore
type MockAggregateStore struct {
	mock.Mock
}

func (m *MockAggregateStore) SaveDailyAggregates(ctx context.Context, batch repository.AggregateBatch) (int, error) {
	args := m.Called(ctx, batch)
	return args.Int(0), args.Error(1)
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()

	e, err := engine.New(engine.Options{
		IdentityFields: []string{domain.FieldRegistrantID, domain.FieldEventID},
		MergeStrategy:  "latest",
		CacheSize:      16,
	}, telemetry.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	require.NoError(t, err)
	return e
}

func testRegistrations() []domain.RawRecord {
	return []domain.RawRecord{
		{"registrant_id": "1", "event_id": "A", "registered_at": "2026-01-01", "status": "confirmed", "region": "Bangkok", "price": "1000"},
		{"registrant_id": "1", "event_id": "A", "registered_at": "2026-01-02", "status": "cancelled", "region": "Bangkok", "price": "1000"},
		{"registrant_id": "2", "event_id": "A", "registered_at": "2026-01-01", "status": "confirmed", "region": "Phuket", "price": "1500.50"},
		{"event_id": "A", "registered_at": "2026-01-03"},
	}
}

func newLoadedService(t *testing.T, store AggregateStore) *MetricsService {
	t.Helper()

	loader := new(MockLoader)
	loader.On("Name").Return("csv:test.csv")
	loader.On("Load", mock.Anything).Return(testRegistrations(), nil)

	svc := NewMetricsService(newTestEngine(t), loader, store, zap.NewNop())
	_, err := svc.ReloadSnapshot(context.Background())
	require.NoError(t, err)
	return svc
}

func TestMetricsService_ReloadSnapshot(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Name").Return("csv:test.csv")
	loader.On("Load", mock.Anything).Return(testRegistrations(), nil)

	svc := NewMetricsService(newTestEngine(t), loader, nil, zap.NewNop())

	report, err := svc.ReloadSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "csv:test.csv", report.Source)
	assert.Equal(t, int64(1), report.SnapshotVersion)
	assert.Equal(t, 4, report.Received)
	assert.Equal(t, 2, report.Accepted)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.RejectedTotal)
	assert.Equal(t, 1, report.Rejected["missing_field"])
	assert.Equal(t, "2026-01-01", report.FirstDay)
	assert.Equal(t, "2026-01-02", report.LastDay)
	assert.NotEmpty(t, report.RunID)

	_, err = time.Parse(time.RFC3339, report.BuiltAt)
	assert.NoError(t, err)

	again, err := svc.ReloadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.SnapshotVersion)
}

func TestMetricsService_ReloadSnapshot_LoadError(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Name").Return("clickhouse:analytics")
	loader.On("Load", mock.Anything).Return(nil, errors.New("connection refused"))

	svc := NewMetricsService(newTestEngine(t), loader, nil, zap.NewNop())

	report, err := svc.ReloadSnapshot(context.Background())
	assert.Nil(t, report)
	assert.ErrorContains(t, err, "failed to load registrations from clickhouse:analytics")

	_, err = svc.GetQualityReport(context.Background())
	assert.ErrorIs(t, err, engine.ErrNoSnapshot)
}

func TestMetricsService_ReloadSnapshot_PersistsAggregates(t *testing.T) {
	store := new(MockAggregateStore)

	var saved repository.AggregateBatch
	store.On("SaveDailyAggregates", mock.Anything, mock.AnythingOfType("repository.AggregateBatch")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(repository.AggregateBatch) }).
		Return(2, nil).Once()

	newLoadedService(t, store)

	store.AssertExpectations(t)
	assert.Equal(t, int64(1), saved.SnapshotVersion)
	assert.NotEmpty(t, saved.RunID)
	require.Len(t, saved.Rows, 2)

	first := saved.Rows[0]
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), first.Day)
	assert.Equal(t, "Phuket", first.Dimensions["region"])
	assert.Equal(t, "confirmed", first.Dimensions["status"])
	assert.Equal(t, uint64(1), first.Registrations)
	assert.Equal(t, int64(150050), first.RevenueMinor)
	assert.Equal(t, "1.000000", first.ConversionRate)

	second := saved.Rows[1]
	assert.Equal(t, "Bangkok", second.Dimensions["region"])
	assert.Equal(t, uint64(1), second.Cancelled)
	assert.Equal(t, int64(0), second.RevenueMinor)
}

func TestMetricsService_ReloadSnapshot_PersistFailureKeepsSnapshot(t *testing.T) {
	store := new(MockAggregateStore)
	store.On("SaveDailyAggregates", mock.Anything, mock.Anything).Return(0, errors.New("table is read only"))

	svc := newLoadedService(t, store)

	report, err := svc.GetQualityReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.SnapshotVersion)
	assert.Empty(t, report.Source)
}

func TestMetricsService_GetMetrics_Monthly(t *testing.T) {
	svc := newLoadedService(t, nil)

	resp, err := svc.GetMetrics(context.Background(), &dto.GetMetricsRequest{GroupBy: "month"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.SnapshotVersion)
	assert.Equal(t, "month", resp.Granularity)
	assert.Empty(t, resp.GroupBy)
	require.Len(t, resp.Rows, 1)

	row := resp.Rows[0]
	assert.Equal(t, "2026-01-01", row.Bucket)
	assert.Nil(t, row.Dimensions)
	assert.Equal(t, int64(2), row.Registrations)
	assert.Equal(t, int64(1), row.Confirmed)
	assert.Equal(t, int64(1), row.Cancelled)
	assert.Equal(t, uint64(2), row.DistinctRegistrants)
	assert.Equal(t, "1500.50", row.Revenue)
	assert.Equal(t, "0.500000", row.ConversionRate)
	assert.Equal(t, "0.500000", row.CancellationRate)
	assert.Equal(t, "0.000000", row.WaitlistRate)
	assert.Equal(t, "1500.50", row.AveragePrice)

	assert.Equal(t, row.MetricsData, resp.Totals)
}

func TestMetricsService_GetMetrics_FilteredByDimension(t *testing.T) {
	svc := newLoadedService(t, nil)

	resp, err := svc.GetMetrics(context.Background(), &dto.GetMetricsRequest{
		From:    "2026-01-01",
		To:      "2026-01-31",
		GroupBy: "region",
		Status:  []string{"confirmed, waitlisted"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"region"}, resp.GroupBy)
	assert.Equal(t, "2026-01-01", resp.From)
	require.Len(t, resp.Rows, 1)
	assert.Empty(t, resp.Rows[0].Bucket)
	assert.Equal(t, map[string]string{"region": "Phuket"}, resp.Rows[0].Dimensions)
	assert.Equal(t, int64(1), resp.Totals.Registrations)
}

func TestMetricsService_GetMetrics_InvalidFilter(t *testing.T) {
	svc := newLoadedService(t, nil)

	tests := []struct {
		name string
		req  dto.GetMetricsRequest
	}{
		{name: "bad from date", req: dto.GetMetricsRequest{From: "01/02/2026"}},
		{name: "bad to date", req: dto.GetMetricsRequest{To: "yesterday"}},
		{name: "from after to", req: dto.GetMetricsRequest{From: "2026-02-01", To: "2026-01-01"}},
		{name: "unknown group", req: dto.GetMetricsRequest{GroupBy: "colour"}},
		{name: "two granularities", req: dto.GetMetricsRequest{GroupBy: "day,month"}},
		{name: "negative top", req: dto.GetMetricsRequest{Top: -1}},
		{name: "unknown sort", req: dto.GetMetricsRequest{Sort: "alphabetical"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetMetrics(context.Background(), &tt.req)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, query.ErrInvalidFilter)
		})
	}
}

func TestMetricsService_GetMetrics_NoSnapshot(t *testing.T) {
	svc := NewMetricsService(newTestEngine(t), new(MockLoader), nil, zap.NewNop())

	_, err := svc.GetMetrics(context.Background(), &dto.GetMetricsRequest{})
	assert.ErrorIs(t, err, engine.ErrNoSnapshot)
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("from", "2026-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), day)

	ts, err := parseDay("from", "2026-01-15T23:30:00+07:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 16, 30, 0, 0, time.UTC), ts)

	empty, err := parseDay("to", " ")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a, b", "", "c,"))
	assert.Nil(t, splitList(""))
}

func TestMetricsService_GetMetrics_Weekday(t *testing.T) {
	svc := newLoadedService(t, nil)

	resp, err := svc.GetMetrics(context.Background(), &dto.GetMetricsRequest{GroupBy: "weekday"})
	require.NoError(t, err)

	assert.Equal(t, "weekday", resp.Granularity)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "Thursday", resp.Rows[0].Bucket)
	assert.Equal(t, "Friday", resp.Rows[1].Bucket)
	assert.Equal(t, int64(1), resp.Rows[1].Cancelled)
}

func intPtr(v int) *int { return &v }

func TestMetricsService_GetParticipants(t *testing.T) {
	svc := newLoadedService(t, nil)

	resp, err := svc.GetParticipants(context.Background(), &dto.GetParticipantsRequest{
		InactiveDays: intPtr(50),
		AsOf:         "2026-03-01",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.SnapshotVersion)
	assert.Equal(t, "2026-03-01", resp.AsOf)
	assert.Equal(t, 50, resp.InactiveDays)
	assert.Equal(t, defaultParticipantLimit, resp.Limit)
	assert.Equal(t, 2, resp.Participants)
	assert.Equal(t, 2, resp.InactiveTotal)

	require.Len(t, resp.Inactive, 2)
	assert.Equal(t, dto.ParticipantRow{RegistrantID: "2", LastRegistration: "2026-01-01", DaysSinceLast: 59, Registrations: 1}, resp.Inactive[0])
	assert.Equal(t, dto.ParticipantRow{RegistrantID: "1", LastRegistration: "2026-01-02", DaysSinceLast: 58, Registrations: 1}, resp.Inactive[1])
	assert.Len(t, resp.LeastActive, 2)
}

func TestMetricsService_GetParticipants_Defaults(t *testing.T) {
	svc := newLoadedService(t, nil)

	resp, err := svc.GetParticipants(context.Background(), &dto.GetParticipantsRequest{Limit: intPtr(1)})
	require.NoError(t, err)

	assert.Equal(t, defaultInactiveDays, resp.InactiveDays)
	assert.Equal(t, 1, resp.Limit)
	assert.Len(t, resp.LeastActive, 1)
	assert.NotEmpty(t, resp.AsOf)
}

func TestMetricsService_GetParticipants_Invalid(t *testing.T) {
	svc := newLoadedService(t, nil)

	tests := []struct {
		name string
		req  dto.GetParticipantsRequest
	}{
		{name: "negative days", req: dto.GetParticipantsRequest{InactiveDays: intPtr(-1)}},
		{name: "zero limit", req: dto.GetParticipantsRequest{Limit: intPtr(0)}},
		{name: "limit too large", req: dto.GetParticipantsRequest{Limit: intPtr(maxParticipantLimit + 1)}},
		{name: "bad as_of", req: dto.GetParticipantsRequest{AsOf: "last week"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetParticipants(context.Background(), &tt.req)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, query.ErrInvalidFilter)
		})
	}
}

func TestMetricsService_GetParticipants_NoSnapshot(t *testing.T) {
	svc := NewMetricsService(newTestEngine(t), new(MockLoader), nil, zap.NewNop())

	_, err := svc.GetParticipants(context.Background(), &dto.GetParticipantsRequest{})
	assert.ErrorIs(t, err, engine.ErrNoSnapshot)
}
