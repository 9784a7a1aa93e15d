package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/aggregate"
	"github.com/BarkinBalci/registration-analytics-service/internal/cache"
	"github.com/BarkinBalci/registration-analytics-service/internal/dedup"
	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/normalize"
	"github.com/BarkinBalci/registration-analytics-service/internal/query"
	"github.com/BarkinBalci/registration-analytics-service/internal/telemetry"
)

// ErrNoSnapshot is returned by queries issued before the first successful ingestion
var ErrNoSnapshot = errors.New("no snapshot loaded")

// Options configures an Engine
type Options struct {
	IdentityFields []string
	MergeStrategy  string
	Dimensions     []string
	CacheSize      int
	CacheTTL       time.Duration
}

// Metrics receives engine and cache activity
type Metrics interface {
	cache.Observer
	SnapshotBuilt(version int64, accepted, duplicates int, rejected map[string]int, seconds float64)
	QueryObserved(outcome string, seconds float64)
}

type buildFunc func([]domain.CanonicalRecord, aggregate.Options) (*aggregate.Table, error)

// Engine turns raw record batches into immutable snapshots and answers filter queries against the active one
type Engine struct {
	normalizer   *normalize.Normalizer
	deduplicator *dedup.Deduplicator
	aggOpts      aggregate.Options
	build        buildFunc
	cache        *cache.Cache
	metrics      Metrics
	tracer       trace.Tracer
	log          *zap.Logger
	now          func() time.Time

	buildMu sync.Mutex
	version int64
	active  atomic.Pointer[Snapshot]
}

// New creates a new engine
func New(opts Options, metrics Metrics, log *zap.Logger) (*Engine, error) {
	strategy, err := dedup.StrategyByName(opts.MergeStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve merge strategy: %w", err)
	}

	deduplicator, err := dedup.NewDeduplicator(opts.IdentityFields, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to create deduplicator: %w", err)
	}

	dims := make([]aggregate.Dimension, 0, len(opts.Dimensions))
	for _, name := range opts.Dimensions {
		d, ok := aggregate.ParseDimension(name)
		if !ok {
			return nil, fmt.Errorf("unsupported dimension: %s", name)
		}
		dims = append(dims, d)
	}

	size := opts.CacheSize
	if size <= 0 {
		size = 512
	}

	return &Engine{
		normalizer:   normalize.NewNormalizer(),
		deduplicator: deduplicator,
		aggOpts:      aggregate.Options{Dimensions: dims},
		build:        aggregate.Build,
		cache:        cache.New(size, opts.CacheTTL, metrics, log),
		metrics:      metrics,
		tracer:       telemetry.Tracer(),
		log:          log,
		now:          time.Now,
	}, nil
}

// Ingest builds a new snapshot from raws and makes it active.
// Rejected rows are counted and skipped. When the build fails the previous snapshot stays active.
func (e *Engine) Ingest(ctx context.Context, raws []domain.RawRecord) (*Report, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Ingest", trace.WithAttributes(attribute.Int("records.received", len(raws))))
	defer span.End()

	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()
	runID := uuid.NewString()

	report := Report{
		RunID:    runID,
		Received: len(raws),
		Rejected: make(map[normalize.Reason]int),
	}

	canonical := make([]domain.CanonicalRecord, 0, len(raws))
	for i, raw := range raws {
		if i%10000 == 0 && ctx.Err() != nil {
			return nil, fmt.Errorf("failed to ingest records: %w", ctx.Err())
		}

		rec, rej := e.normalizer.Normalize(i, raw)
		if rej != nil {
			report.Rejected[rej.Reason]++
			e.log.Debug("Record rejected",
				zap.Int("seq", rej.Seq),
				zap.String("reason", string(rej.Reason)),
				zap.String("field", rej.Field),
				zap.String("value", rej.Value))
			continue
		}
		canonical = append(canonical, rec)
	}

	deduped := e.deduplicator.Deduplicate(canonical)
	report.Duplicates = deduped.Duplicates
	report.Accepted = len(deduped.Records)

	table, err := e.build(deduped.Records, e.aggOpts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate build failed")
		e.log.Error("Failed to build snapshot, keeping previous one",
			zap.String("run_id", runID),
			zap.Int64("active_version", e.version),
			zap.Error(err))
		return nil, fmt.Errorf("failed to build aggregate table: %w", err)
	}

	participants := aggregate.BuildParticipants(deduped.Records)

	e.version++
	report.SnapshotVersion = e.version
	report.BuiltAt = time.Now().UTC()
	report.Duration = time.Since(start)
	report.FirstDay, report.LastDay = table.Span()

	snapshot := &Snapshot{
		Version: e.version,
		RunID:   runID,
		Records:      deduped.Records,
		Table:        table,
		Participants: participants,
		Report:       report,
	}
	e.active.Store(snapshot)
	e.cache.Advance(snapshot.Version)

	if e.metrics != nil {
		e.metrics.SnapshotBuilt(snapshot.Version, report.Accepted, report.Duplicates, report.rejectedByName(), report.Duration.Seconds())
	}

	span.SetAttributes(
		attribute.Int64("snapshot.version", snapshot.Version),
		attribute.Int("records.accepted", report.Accepted),
		attribute.Int("records.duplicates", report.Duplicates),
		attribute.Int("records.rejected", report.RejectedTotal()),
	)

	e.log.Info("Snapshot built",
		zap.Int64("version", snapshot.Version),
		zap.String("run_id", runID),
		zap.Int("received", report.Received),
		zap.Int("accepted", report.Accepted),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("rejected_missing_field", report.Rejected[normalize.ReasonMissingField]),
		zap.Int("rejected_bad_timestamp", report.Rejected[normalize.ReasonBadTimestamp]),
		zap.Int("cells", len(table.Cells())),
		zap.Int("participants", participants.Len()),
		zap.Duration("duration", report.Duration))

	out := report.clone()
	return &out, nil
}

// Query answers spec against the active snapshot, through the metrics cache
func (e *Engine) Query(ctx context.Context, spec query.FilterSpec) (*query.ResultSlice, error) {
	start := time.Now()

	snapshot := e.active.Load()
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	ctx, span := e.tracer.Start(ctx, "engine.Query", trace.WithAttributes(
		attribute.Int64("snapshot.version", snapshot.Version),
		attribute.String("filter.key", spec.Key()),
	))
	defer span.End()

	if err := spec.Validate(snapshot.Table); err != nil {
		e.observeQuery("invalid", start)
		return nil, err
	}

	result, err := e.cache.GetOrCompute(ctx, snapshot.Version, spec, func(context.Context) (*query.ResultSlice, error) {
		res, err := query.Run(snapshot.Table, spec)
		if err != nil {
			return nil, err
		}
		res.SnapshotVersion = snapshot.Version
		return res, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		e.observeQuery("error", start)
		return nil, fmt.Errorf("failed to query snapshot %d: %w", snapshot.Version, err)
	}

	e.observeQuery("ok", start)
	return result, nil
}

func (e *Engine) observeQuery(outcome string, start time.Time) {
	if e.metrics != nil {
		e.metrics.QueryObserved(outcome, time.Since(start).Seconds())
	}
}

// Participants lists inactive and least active registrants of the active snapshot
func (e *Engine) Participants(ctx context.Context, q ParticipantQuery) (*ParticipantReport, error) {
	snapshot := e.active.Load()
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	_, span := e.tracer.Start(ctx, "engine.Participants", trace.WithAttributes(
		attribute.Int64("snapshot.version", snapshot.Version),
		attribute.Int("participants.inactive_days", q.InactiveDays),
		attribute.Int("participants.limit", q.Limit),
	))
	defer span.End()

	if q.InactiveDays < 0 {
		return nil, fmt.Errorf("%w: inactive days must not be negative", query.ErrInvalidFilter)
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", query.ErrInvalidFilter)
	}

	asOf := q.AsOf.UTC()
	if q.AsOf.IsZero() {
		asOf = e.now().UTC()
	}

	inactive, total := snapshot.Participants.Inactive(asOf, q.InactiveDays, q.Limit)
	return &ParticipantReport{
		SnapshotVersion: snapshot.Version,
		AsOf:            asOf,
		InactiveDays:    q.InactiveDays,
		Participants:    snapshot.Participants.Len(),
		InactiveTotal:   total,
		Inactive:        inactive,
		LeastActive:     snapshot.Participants.LeastActive(q.Limit),
	}, nil
}

// Report returns the data-quality report of the active snapshot
func (e *Engine) Report() (*Report, error) {
	snapshot := e.active.Load()
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}
	r := snapshot.Report.clone()
	return &r, nil
}

// Snapshot returns the active snapshot, or nil before the first successful ingestion
func (e *Engine) Snapshot() *Snapshot {
	return e.active.Load()
}
