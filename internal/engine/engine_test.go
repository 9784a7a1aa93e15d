package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/aggregate"
	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/normalize"
	"github.com/BarkinBalci/registration-analytics-service/internal/query"
	"github.com/BarkinBalci/registration-analytics-service/internal/telemetry"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(Options{
		IdentityFields: []string{domain.FieldRegistrantID, domain.FieldEventID},
		MergeStrategy:  "latest",
		CacheSize:      16,
	}, telemetry.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	require.NoError(t, err)
	return e
}

func workedExample() []domain.RawRecord {
	return []domain.RawRecord{
		{"registrant_id": "1", "event_id": "A", "registered_at": "2026-01-01", "status": "confirmed", "region": "Bangkok"},
		{"registrant_id": "1", "event_id": "A", "registered_at": "2026-01-02", "status": "cancelled", "region": "Bangkok"},
		{"registrant_id": "2", "event_id": "A", "registered_at": "2026-01-01", "status": "confirmed", "region": "Phuket"},
	}
}

func TestEngine_QueryBeforeIngest(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Query(context.Background(), query.FilterSpec{})
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = e.Report()
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Nil(t, e.Snapshot())
}

func TestEngine_WorkedExample(t *testing.T) {
	e := newTestEngine(t)

	report, err := e.Ingest(context.Background(), workedExample())
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.SnapshotVersion)
	assert.Equal(t, 3, report.Received)
	assert.Equal(t, 2, report.Accepted)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 0, report.RejectedTotal())
	assert.NotEmpty(t, report.RunID)

	daily, err := e.Query(context.Background(), query.FilterSpec{GroupBy: []string{"day"}})
	require.NoError(t, err)
	require.Len(t, daily.Rows, 2)
	assert.Equal(t, int64(1), daily.Rows[0].Metrics.Confirmed)
	assert.Equal(t, int64(0), daily.Rows[0].Metrics.Cancelled)
	assert.Equal(t, int64(1), daily.Rows[1].Metrics.Cancelled)
	assert.Equal(t, int64(0), daily.Rows[1].Metrics.Confirmed)

	monthly, err := e.Query(context.Background(), query.FilterSpec{GroupBy: []string{"month"}})
	require.NoError(t, err)
	require.Len(t, monthly.Rows, 1)
	assert.Equal(t, int64(1), monthly.Rows[0].Metrics.Confirmed)
	assert.Equal(t, int64(1), monthly.Rows[0].Metrics.Cancelled)
	assert.Equal(t, int64(1), monthly.SnapshotVersion)
}

func TestEngine_RejectionsAreCounted(t *testing.T) {
	e := newTestEngine(t)

	raws := append(workedExample(),
		domain.RawRecord{"event_id": "A", "registered_at": "2026-01-03"},
		domain.RawRecord{"registrant_id": "9", "event_id": "A", "registered_at": "someday"},
		domain.RawRecord{"registrant_id": "8", "event_id": "B", "registered_at": "2026-01-03", "status": "on-hold"},
	)

	report, err := e.Ingest(context.Background(), raws)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Rejected[normalize.ReasonMissingField])
	assert.Equal(t, 1, report.Rejected[normalize.ReasonBadTimestamp])
	assert.Equal(t, 3, report.Accepted)

	res, err := e.Query(context.Background(), query.FilterSpec{Where: map[string][]string{"status": {"unknown"}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Totals.Count)
}

func TestEngine_InvalidFilter(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(context.Background(), workedExample())
	require.NoError(t, err)

	_, err = e.Query(context.Background(), query.FilterSpec{GroupBy: []string{"week", "month"}})

	assert.ErrorIs(t, err, query.ErrInvalidFilter)
}

func TestEngine_FailedBuildKeepsPreviousSnapshot(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(context.Background(), workedExample())
	require.NoError(t, err)

	e.build = func([]domain.CanonicalRecord, aggregate.Options) (*aggregate.Table, error) {
		return nil, fmt.Errorf("%w: corrupted", aggregate.ErrMalformedSnapshot)
	}

	_, err = e.Ingest(context.Background(), workedExample()[:1])
	assert.ErrorIs(t, err, aggregate.ErrMalformedSnapshot)

	report, err := e.Report()
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.SnapshotVersion)
	assert.Equal(t, 2, report.Accepted)
}

func TestEngine_NewSnapshotInvalidatesCache(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, workedExample())
	require.NoError(t, err)

	first, err := e.Query(ctx, query.FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Totals.Count)

	more := append(workedExample(), domain.RawRecord{"registrant_id": "3", "event_id": "B", "registered_at": "2026-02-01", "status": "waitlisted"})
	_, err = e.Ingest(ctx, more)
	require.NoError(t, err)

	second, err := e.Query(ctx, query.FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.SnapshotVersion)
	assert.Equal(t, int64(3), second.Totals.Count)
}

func TestEngine_ConcurrentQueriesSeeWholeSnapshots(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	batch := func(n int) []domain.RawRecord {
		out := make([]domain.RawRecord, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, domain.RawRecord{
				"registrant_id": fmt.Sprintf("u%d", i),
				"event_id":      "A",
				"registered_at": time.Date(2026, 1, 1+i%28, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
				"status":        "confirmed",
			})
		}
		return out
	}

	_, err := e.Ingest(ctx, batch(10))
	require.NoError(t, err)

	// version n holds 10*n records
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				res, err := e.Query(ctx, query.FilterSpec{GroupBy: []string{"day"}})
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, res.SnapshotVersion*10, res.Totals.Count)
			}
		}()
	}

	for n := 2; n <= 5; n++ {
		_, err := e.Ingest(ctx, batch(n*10))
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	report, err := e.Report()
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.SnapshotVersion)
}

func TestEngine_ReportIsACopy(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(context.Background(), append(workedExample(), domain.RawRecord{"event_id": "x"}))
	require.NoError(t, err)

	r, err := e.Report()
	require.NoError(t, err)
	r.Rejected[normalize.ReasonMissingField] = 100

	again, err := e.Report()
	require.NoError(t, err)
	assert.Equal(t, 1, again.Rejected[normalize.ReasonMissingField])
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{IdentityFields: []string{"registrant_id"}, MergeStrategy: "coin_flip"}, nil, zap.NewNop())
	assert.Error(t, err)

	_, err = New(Options{IdentityFields: nil}, nil, zap.NewNop())
	assert.Error(t, err)

	_, err = New(Options{IdentityFields: []string{"registrant_id"}, Dimensions: []string{"shoe_size"}}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestEngine_IngestCanceled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Ingest(ctx, workedExample())

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, e.Snapshot())
}

func TestEngine_CachedQueriesWithDelimiterValuesStayDistinct(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Ingest(context.Background(), []domain.RawRecord{
		{"registrant_id": "1", "event_id": "A", "registered_at": "2026-01-01", "category": "a|region=b", "region": "c"},
	})
	require.NoError(t, err)

	exact, err := e.Query(context.Background(), query.FilterSpec{Where: map[string][]string{"category": {"a|region=b"}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), exact.Totals.Count)

	split, err := e.Query(context.Background(), query.FilterSpec{Where: map[string][]string{"category": {"a"}, "region": {"b"}}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), split.Totals.Count)
}

func TestEngine_Participants(t *testing.T) {
	e := newTestEngine(t)
	e.now = func() time.Time { return time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC) }

	_, err := e.Participants(context.Background(), ParticipantQuery{InactiveDays: 30})
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = e.Ingest(context.Background(), []domain.RawRecord{
		{"registrant_id": "1", "event_id": "A", "registered_at": "2026-01-01"},
		{"registrant_id": "1", "event_id": "A", "registered_at": "2026-01-02"},
		{"registrant_id": "1", "event_id": "B", "registered_at": "2026-06-20"},
		{"registrant_id": "2", "event_id": "A", "registered_at": "2026-02-01"},
		{"registrant_id": "3", "event_id": "C", "registered_at": "2026-03-01"},
	})
	require.NoError(t, err)

	report, err := e.Participants(context.Background(), ParticipantQuery{InactiveDays: 100, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.SnapshotVersion)
	assert.Equal(t, time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC), report.AsOf)
	assert.Equal(t, 3, report.Participants)
	assert.Equal(t, 2, report.InactiveTotal)
	require.Len(t, report.Inactive, 2)
	assert.Equal(t, "2", report.Inactive[0].RegistrantID)
	assert.Equal(t, "3", report.Inactive[1].RegistrantID)

	// registrant 1 has two registrations after dedup; the others one each
	require.Len(t, report.LeastActive, 3)
	assert.Equal(t, "1", report.LeastActive[2].RegistrantID)
	assert.Equal(t, int64(2), report.LeastActive[2].Registrations)

	asOf := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	report, err = e.Participants(context.Background(), ParticipantQuery{AsOf: asOf, InactiveDays: 0, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, asOf, report.AsOf)
	// registrant 1 registered after asOf, so only 2 and 3 count
	assert.Equal(t, 2, report.InactiveTotal)
	assert.Len(t, report.Inactive, 1)
	assert.Len(t, report.LeastActive, 1)
}

func TestEngine_ParticipantsInvalidQuery(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(context.Background(), workedExample())
	require.NoError(t, err)

	_, err = e.Participants(context.Background(), ParticipantQuery{InactiveDays: -1})
	assert.ErrorIs(t, err, query.ErrInvalidFilter)

	_, err = e.Participants(context.Background(), ParticipantQuery{Limit: -5})
	assert.ErrorIs(t, err, query.ErrInvalidFilter)
}

func TestEngine_WeekdayQuery(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(context.Background(), workedExample())
	require.NoError(t, err)

	res, err := e.Query(context.Background(), query.FilterSpec{GroupBy: []string{"weekday"}})
	require.NoError(t, err)

	// 2026-01-01 is a Thursday
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Thursday", res.Rows[0].Bucket)
	assert.Equal(t, int64(1), res.Rows[0].Metrics.Count)
	assert.Equal(t, "Friday", res.Rows[1].Bucket)
	assert.Equal(t, aggregate.GranularityWeekday, res.Granularity)
}
