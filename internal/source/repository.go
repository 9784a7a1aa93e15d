package source

import (
	"context"
	"fmt"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// RegistrationReader is the part of the registration repository a loader needs
type RegistrationReader interface {
	LoadRegistrations(ctx context.Context) ([]domain.RawRecord, error)
}

// RepositoryLoader reads the registrations landed by the queue consumer
type RepositoryLoader struct {
	name   string
	reader RegistrationReader
}

// NewRepositoryLoader creates a new loader over reader. name identifies the store in logs and reports.
func NewRepositoryLoader(name string, reader RegistrationReader) *RepositoryLoader {
	return &RepositoryLoader{name: name, reader: reader}
}

// Name identifies the loader in logs and reports
func (l *RepositoryLoader) Name() string {
	return l.name
}

// Load returns every stored registration
func (l *RepositoryLoader) Load(ctx context.Context) ([]domain.RawRecord, error) {
	records, err := l.reader.LoadRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}
	return records, nil
}
