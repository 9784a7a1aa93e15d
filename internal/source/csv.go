package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// CSVLoader reads raw registrations from a CSV export with a header row
type CSVLoader struct {
	path string
	log  *zap.Logger
}

// NewCSVLoader creates a new CSV loader for the file at path
func NewCSVLoader(path string, log *zap.Logger) *CSVLoader {
	return &CSVLoader{path: path, log: log}
}

// Name identifies the loader in logs and reports
func (l *CSVLoader) Name() string {
	return "csv:" + l.path
}

// Load reads every row of the file. Rows the CSV reader cannot parse are skipped and logged.
func (l *CSVLoader) Load(ctx context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	records, skipped, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv file %s: %w", l.path, err)
	}

	l.log.Info("Loaded registrations from csv",
		zap.String("path", l.path),
		zap.Int("rows", len(records)),
		zap.Int("skipped", skipped))

	return records, nil
}

// ReadCSV converts CSV rows into raw records keyed by the header names.
// It returns the records and the number of rows that could not be parsed.
func ReadCSV(ctx context.Context, r io.Reader) ([]domain.RawRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var records []domain.RawRecord
	skipped := 0
	for line := 1; ; line++ {
		if line%10000 == 0 && ctx.Err() != nil {
			return nil, skipped, ctx.Err()
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, skipped, err
		}

		rec := make(domain.RawRecord, len(headers))
		for i, value := range row {
			if i >= len(headers) || headers[i] == "" {
				break
			}
			if value == "" {
				continue
			}
			rec[headers[i]] = value
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}
