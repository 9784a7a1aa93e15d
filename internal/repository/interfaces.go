package repository

import (
	"context"
	"time"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// DailyAggregate is one finest-grain cell of a snapshot's aggregate table
type DailyAggregate struct {
	Day                 time.Time
	Dimensions          map[string]string
	Registrations       uint64
	Confirmed           uint64
	Cancelled           uint64
	Waitlisted          uint64
	Unknown             uint64
	Virtual             uint64
	DistinctRegistrants uint64
	RevenueMinor        int64
	ConversionRate      string
}

// AggregateBatch holds every daily cell of one snapshot
type AggregateBatch struct {
	SnapshotVersion int64
	RunID           string
	Rows            []DailyAggregate
}

// RegistrationRepository defines the interface for registration storage operations
type RegistrationRepository interface {
	// InsertBatch inserts a batch of raw registrations into the storage
	InsertBatch(ctx context.Context, registrations []*domain.IngestedRegistration) (int, error)

	// LoadRegistrations returns every stored registration in ingestion order
	LoadRegistrations(ctx context.Context) ([]domain.RawRecord, error)

	// SaveDailyAggregates persists the daily cells of a snapshot
	SaveDailyAggregates(ctx context.Context, batch AggregateBatch) (int, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}
