package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/aggregate"
	"github.com/BarkinBalci/registration-analytics-service/internal/dto"
	"github.com/BarkinBalci/registration-analytics-service/internal/engine"
	"github.com/BarkinBalci/registration-analytics-service/internal/query"
	"github.com/BarkinBalci/registration-analytics-service/internal/repository"
)

const dayLayout = "2006-01-02"

const (
	defaultInactiveDays     = 180
	defaultParticipantLimit = 500
	maxParticipantLimit     = 5000
)

// MetricsService answers metrics queries and rebuilds snapshots from the configured loader
type MetricsService struct {
	engine Analytics
	loader Loader
	store  AggregateStore
	log    *zap.Logger
}

// NewMetricsService creates a new metrics service. A nil store disables aggregate persistence.
func NewMetricsService(engine Analytics, loader Loader, store AggregateStore, log *zap.Logger) *MetricsService {
	return &MetricsService{
		engine: engine,
		loader: loader,
		store:  store,
		log:    log,
	}
}

// ReloadSnapshot loads every registration from the loader and builds a new snapshot from them
func (s *MetricsService) ReloadSnapshot(ctx context.Context) (*dto.QualityReportResponse, error) {
	records, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations from %s: %w", s.loader.Name(), err)
	}

	report, err := s.engine.Ingest(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}

	if s.store != nil {
		s.persistAggregates(ctx, report.SnapshotVersion)
	}

	response := toQualityReport(report)
	response.Source = s.loader.Name()
	return response, nil
}

// persistAggregates exports the daily cells of the given snapshot version.
// Failures are logged; the snapshot stays active either way.
func (s *MetricsService) persistAggregates(ctx context.Context, version int64) {
	snapshot := s.engine.Snapshot()
	if snapshot == nil || snapshot.Version != version {
		s.log.Warn("Skipping aggregate export for superseded snapshot", zap.Int64("snapshot_version", version))
		return
	}

	batch := toAggregateBatch(snapshot)
	saved, err := s.store.SaveDailyAggregates(ctx, batch)
	if err != nil {
		s.log.Error("Failed to persist daily aggregates",
			zap.Int64("snapshot_version", version),
			zap.Error(err))
		return
	}

	s.log.Info("Daily aggregates persisted",
		zap.Int64("snapshot_version", version),
		zap.Int("rows", saved))
}

func toAggregateBatch(snapshot *engine.Snapshot) repository.AggregateBatch {
	dims := snapshot.Table.Dimensions()
	cells := snapshot.Table.Cells()

	rows := make([]repository.DailyAggregate, 0, len(cells))
	for _, cell := range cells {
		values := make(map[string]string, len(dims))
		for i, d := range dims {
			values[string(d)] = cell.Value(i)
		}

		m := cell.Metrics
		rows = append(rows, repository.DailyAggregate{
			Day:                 cell.Day,
			Dimensions:          values,
			Registrations:       uint64(m.Count),
			Confirmed:           uint64(m.Confirmed),
			Cancelled:           uint64(m.Cancelled),
			Waitlisted:          uint64(m.Waitlisted),
			Unknown:             uint64(m.Unknown),
			Virtual:             uint64(m.Virtual),
			DistinctRegistrants: m.DistinctRegistrants(),
			RevenueMinor:        m.RevenueMinor,
			ConversionRate:      m.Rates().Conversion.Text('f'),
		})
	}

	return repository.AggregateBatch{
		SnapshotVersion: snapshot.Version,
		RunID:           snapshot.RunID,
		Rows:            rows,
	}
}

// GetMetrics runs a metrics query against the active snapshot
func (s *MetricsService) GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error) {
	spec, err := toFilterSpec(req)
	if err != nil {
		s.log.Warn("Invalid metrics request", zap.Error(err))
		return nil, err
	}

	result, err := s.engine.Query(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}

	s.log.Debug("Metrics retrieved",
		zap.Int64("snapshot_version", result.SnapshotVersion),
		zap.Int("rows", len(result.Rows)),
		zap.Int64("registrations", result.Totals.Count))

	return toMetricsResponse(req, result), nil
}

// GetQualityReport returns the data-quality report of the active snapshot
func (s *MetricsService) GetQualityReport(ctx context.Context) (*dto.QualityReportResponse, error) {
	report, err := s.engine.Report()
	if err != nil {
		return nil, fmt.Errorf("failed to get quality report: %w", err)
	}
	return toQualityReport(report), nil
}

// GetParticipants lists inactive and least active registrants of the active snapshot
func (s *MetricsService) GetParticipants(ctx context.Context, req *dto.GetParticipantsRequest) (*dto.GetParticipantsResponse, error) {
	q, err := toParticipantQuery(req)
	if err != nil {
		s.log.Warn("Invalid participants request", zap.Error(err))
		return nil, err
	}

	report, err := s.engine.Participants(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}

	s.log.Debug("Participants retrieved",
		zap.Int64("snapshot_version", report.SnapshotVersion),
		zap.Int("inactive_days", report.InactiveDays),
		zap.Int("inactive_total", report.InactiveTotal))

	return &dto.GetParticipantsResponse{
		SnapshotVersion: report.SnapshotVersion,
		AsOf:            report.AsOf.Format(dayLayout),
		InactiveDays:    report.InactiveDays,
		Limit:           q.Limit,
		Participants:    report.Participants,
		InactiveTotal:   report.InactiveTotal,
		Inactive:        toParticipantRows(report.Inactive, report.AsOf),
		LeastActive:     toParticipantRows(report.LeastActive, report.AsOf),
	}, nil
}

func toParticipantQuery(req *dto.GetParticipantsRequest) (engine.ParticipantQuery, error) {
	q := engine.ParticipantQuery{
		InactiveDays: defaultInactiveDays,
		Limit:        defaultParticipantLimit,
	}

	if req.InactiveDays != nil {
		if *req.InactiveDays < 0 {
			return q, fmt.Errorf("%w: inactive_days must not be negative", query.ErrInvalidFilter)
		}
		q.InactiveDays = *req.InactiveDays
	}
	if req.Limit != nil {
		if *req.Limit < 1 || *req.Limit > maxParticipantLimit {
			return q, fmt.Errorf("%w: limit must be between 1 and %d", query.ErrInvalidFilter, maxParticipantLimit)
		}
		q.Limit = *req.Limit
	}

	asOf, err := parseDay("as_of", req.AsOf)
	if err != nil {
		return q, err
	}
	q.AsOf = asOf

	return q, nil
}

func toParticipantRows(participants []aggregate.Participant, asOf time.Time) []dto.ParticipantRow {
	rows := make([]dto.ParticipantRow, 0, len(participants))
	for _, p := range participants {
		rows = append(rows, dto.ParticipantRow{
			RegistrantID:     p.RegistrantID,
			LastRegistration: p.LastRegisteredAt.Format(dayLayout),
			DaysSinceLast:    p.DaysSince(asOf),
			Registrations:    p.Registrations,
		})
	}
	return rows
}

func toFilterSpec(req *dto.GetMetricsRequest) (query.FilterSpec, error) {
	from, err := parseDay("from", req.From)
	if err != nil {
		return query.FilterSpec{}, err
	}
	to, err := parseDay("to", req.To)
	if err != nil {
		return query.FilterSpec{}, err
	}

	where := map[string][]string{}
	filters := map[aggregate.Dimension][]string{
		aggregate.DimCategory:  req.Category,
		aggregate.DimRegion:    req.Region,
		aggregate.DimStatus:    req.Status,
		aggregate.DimEvent:     req.Event,
		aggregate.DimDistance:  req.Distance,
		aggregate.DimGender:    req.Gender,
		aggregate.DimAgeGroup:  req.AgeGroup,
		aggregate.DimPriceTier: req.PriceTier,
	}
	for dim, raw := range filters {
		if values := splitList(raw...); len(values) > 0 {
			where[string(dim)] = values
		}
	}

	return query.FilterSpec{
		From:    from,
		To:      to,
		GroupBy: splitList(req.GroupBy),
		Where:   where,
		TopN:    req.Top,
		SortBy:  query.SortOrder(strings.TrimSpace(req.Sort)),
	}, nil
}

// parseDay accepts a calendar date or an RFC 3339 timestamp; empty means unbounded
func parseDay(name, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s %q is not a date (expected YYYY-MM-DD)", query.ErrInvalidFilter, name, s)
}

// splitList flattens repeated and comma separated values, dropping blanks
func splitList(raw ...string) []string {
	var out []string
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func toMetricsResponse(req *dto.GetMetricsRequest, result *query.ResultSlice) *dto.GetMetricsResponse {
	groupBy := make([]string, len(result.GroupBy))
	for i, d := range result.GroupBy {
		groupBy[i] = string(d)
	}

	rows := make([]dto.MetricsRow, 0, len(result.Rows))
	for _, g := range result.Rows {
		row := dto.MetricsRow{Bucket: g.Bucket, MetricsData: toMetricsData(g.Metrics)}
		if len(groupBy) > 0 {
			row.Dimensions = make(map[string]string, len(groupBy))
			for i, name := range groupBy {
				row.Dimensions[name] = g.Values[i]
			}
		}
		rows = append(rows, row)
	}

	return &dto.GetMetricsResponse{
		SnapshotVersion: result.SnapshotVersion,
		From:            strings.TrimSpace(req.From),
		To:              strings.TrimSpace(req.To),
		Granularity:     string(result.Granularity),
		GroupBy:         groupBy,
		Totals:          toMetricsData(result.Totals),
		Rows:            rows,
		Truncated:       result.Truncated,
	}
}

func toMetricsData(m aggregate.Metrics) dto.MetricsData {
	rates := m.Rates()
	return dto.MetricsData{
		Registrations:       m.Count,
		Confirmed:           m.Confirmed,
		Cancelled:           m.Cancelled,
		Waitlisted:          m.Waitlisted,
		Unknown:             m.Unknown,
		Virtual:             m.Virtual,
		DistinctRegistrants: m.DistinctRegistrants(),
		Revenue:             apd.New(m.RevenueMinor, -2).Text('f'),
		ConversionRate:      rates.Conversion.Text('f'),
		CancellationRate:    rates.Cancellation.Text('f'),
		WaitlistRate:        rates.Waitlist.Text('f'),
		AveragePrice:        rates.AveragePrice.Text('f'),
	}
}

func toQualityReport(r *engine.Report) *dto.QualityReportResponse {
	rejected := make(map[string]int, len(r.Rejected))
	for reason, n := range r.Rejected {
		rejected[string(reason)] = n
	}

	response := &dto.QualityReportResponse{
		SnapshotVersion: r.SnapshotVersion,
		RunID:           r.RunID,
		Received:        r.Received,
		Accepted:        r.Accepted,
		Duplicates:      r.Duplicates,
		Rejected:        rejected,
		RejectedTotal:   r.RejectedTotal(),
		BuiltAt:         r.BuiltAt.UTC().Format(time.RFC3339),
		DurationMs:      r.Duration.Milliseconds(),
	}
	if !r.FirstDay.IsZero() {
		response.FirstDay = r.FirstDay.Format(dayLayout)
		response.LastDay = r.LastDay.Format(dayLayout)
	}
	return response
}
