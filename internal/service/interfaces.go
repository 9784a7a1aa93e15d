package service

import (
	"context"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
	"github.com/BarkinBalci/registration-analytics-service/internal/dto"
	"github.com/BarkinBalci/registration-analytics-service/internal/engine"
	"github.com/BarkinBalci/registration-analytics-service/internal/query"
	"github.com/BarkinBalci/registration-analytics-service/internal/repository"
)

// RegistrationServicer defines the interface for registration ingestion operations
type RegistrationServicer interface {
	ProcessRegistration(ctx context.Context, req *dto.RegistrationRequest) (string, error)
	ProcessBulkRegistrations(ctx context.Context, reqs []dto.RegistrationRequest) ([]string, []string, error)
}

// MetricsServicer defines the interface for metrics and snapshot operations
type MetricsServicer interface {
	GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error)
	GetQualityReport(ctx context.Context) (*dto.QualityReportResponse, error)
	GetParticipants(ctx context.Context, req *dto.GetParticipantsRequest) (*dto.GetParticipantsResponse, error)
	ReloadSnapshot(ctx context.Context) (*dto.QualityReportResponse, error)
}

// Loader reads the full set of raw registrations a snapshot is built from
type Loader interface {
	Name() string
	Load(ctx context.Context) ([]domain.RawRecord, error)
}

// Analytics is the subset of the engine used by MetricsService
type Analytics interface {
	Ingest(ctx context.Context, raws []domain.RawRecord) (*engine.Report, error)
	Query(ctx context.Context, spec query.FilterSpec) (*query.ResultSlice, error)
	Report() (*engine.Report, error)
	Participants(ctx context.Context, q engine.ParticipantQuery) (*engine.ParticipantReport, error)
	Snapshot() *engine.Snapshot
}

// AggregateStore persists the daily cells of a snapshot
type AggregateStore interface {
	SaveDailyAggregates(ctx context.Context, batch repository.AggregateBatch) (int, error)
}
