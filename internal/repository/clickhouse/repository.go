package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/repository"
)

const (
	registrationsTable = "registrations"
	aggregatesTable    = "registration_daily_aggregates"
)

// Repository implements RegistrationRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

func registrationsDDL() string {
	var cols strings.Builder
	for _, f := range domain.StoredFields() {
		cols.WriteString("\t\t")
		cols.WriteString(f)
		switch f {
		case domain.FieldStatus, domain.FieldCategory, domain.FieldRegion, domain.FieldGender:
			cols.WriteString(" LowCardinality(String),\n")
		default:
			cols.WriteString(" String,\n")
		}
	}

	// ReplacingMergeTree collapses redelivered messages sharing a message_key
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		message_key String,
%s		payload String,
		ingested_at DateTime64(3) DEFAULT now64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY (message_key)
	SETTINGS index_granularity = 8192
	`, registrationsTable, cols.String())
}

const aggregatesDDL = `
	CREATE TABLE IF NOT EXISTS registration_daily_aggregates (
		snapshot_version UInt64,
		run_id String,
		day Date,
		dimensions Map(String, String),
		registrations UInt64,
		confirmed UInt64,
		cancelled UInt64,
		waitlisted UInt64,
		unknown UInt64,
		virtual UInt64,
		distinct_registrants UInt64,
		revenue_minor Int64,
		conversion_rate String,
		built_at DateTime64(3) DEFAULT now64(3)
	) ENGINE = MergeTree
	ORDER BY (snapshot_version, day)
	PARTITION BY toYYYYMM(day)
	`

// InitSchema creates the raw registrations and daily aggregates tables
func (r *Repository) InitSchema(ctx context.Context) error {
	if err := r.client.Conn().Exec(ctx, registrationsDDL()); err != nil {
		return fmt.Errorf("failed to create %s table: %w", registrationsTable, err)
	}
	if err := r.client.Conn().Exec(ctx, aggregatesDDL); err != nil {
		return fmt.Errorf("failed to create %s table: %w", aggregatesTable, err)
	}

	r.log.Info("ClickHouse schema initialized successfully",
		zap.String("database", r.client.Database()))
	return nil
}

func registrationColumns() string {
	cols := append([]string{"message_key"}, domain.StoredFields()...)
	cols = append(cols, "payload", "ingested_at", "version")
	return strings.Join(cols, ", ")
}

// InsertBatch inserts a batch of raw registrations into ClickHouse
func (r *Repository) InsertBatch(ctx context.Context, registrations []*domain.IngestedRegistration) (int, error) {
	if len(registrations) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (%s)", registrationsTable, registrationColumns()))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	fields := domain.StoredFields()
	insertedCount := 0
	for _, reg := range registrations {
		if reg.Version == 0 {
			reg.Version = uint64(time.Now().UnixNano())
		}
		if reg.IngestedAt.IsZero() {
			reg.IngestedAt = time.Now().UTC()
		}

		values := make([]any, 0, len(fields)+4)
		values = append(values, reg.MessageKey)
		for _, f := range fields {
			values = append(values, reg.Record.String(f))
		}
		values = append(values, reg.Payload, reg.IngestedAt, reg.Version)

		if err := batch.Append(values...); err != nil {
			return 0, fmt.Errorf("failed to append registration to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// LoadRegistrations reads every stored registration, ordered by ingestion time
func (r *Repository) LoadRegistrations(ctx context.Context) ([]domain.RawRecord, error) {
	fields := domain.StoredFields()
	query := fmt.Sprintf("SELECT %s FROM %s FINAL ORDER BY ingested_at, message_key",
		strings.Join(fields, ", "), registrationsTable)

	rows, err := r.client.Conn().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close registration rows", zap.Error(err))
		}
	}(rows)

	var records []domain.RawRecord
	values := make([]string, len(fields))
	dest := make([]any, len(fields))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}

		rec := make(domain.RawRecord, len(fields))
		for i, f := range fields {
			if values[i] != "" {
				rec[f] = values[i]
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}

	r.log.Info("Loaded registrations from ClickHouse", zap.Int("rows", len(records)))
	return records, nil
}

// SaveDailyAggregates writes the daily cells of one snapshot
func (r *Repository) SaveDailyAggregates(ctx context.Context, agg repository.AggregateBatch) (int, error) {
	if len(agg.Rows) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, `INSERT INTO registration_daily_aggregates (
		snapshot_version, run_id, day, dimensions, registrations, confirmed, cancelled, waitlisted,
		unknown, virtual, distinct_registrants, revenue_minor, conversion_rate)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare aggregate batch: %w", err)
	}

	for _, row := range agg.Rows {
		err := batch.Append(
			uint64(agg.SnapshotVersion),
			agg.RunID,
			row.Day,
			row.Dimensions,
			row.Registrations,
			row.Confirmed,
			row.Cancelled,
			row.Waitlisted,
			row.Unknown,
			row.Virtual,
			row.DistinctRegistrants,
			row.RevenueMinor,
			row.ConversionRate,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append aggregate row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send aggregate batch: %w", err)
	}

	r.log.Info("Saved daily aggregates",
		zap.Int64("snapshot_version", agg.SnapshotVersion),
		zap.Int("rows", len(agg.Rows)))

	return len(agg.Rows), nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}
