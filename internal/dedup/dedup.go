package dedup

import (
	"fmt"
	"sort"

	"github.com/BarkinBalci/registration-analytics-service/internal/domain"
)

// MergeStrategy decides which of two records sharing an identity key survives
type MergeStrategy interface {
	// Prefer reports whether candidate should replace current
	Prefer(current, candidate domain.CanonicalRecord) bool
	Name() string
}

// LatestWins keeps the record with the latest registration timestamp.
// On equal timestamps the record that appeared later in the input wins.
type LatestWins struct{}

func (LatestWins) Prefer(current, candidate domain.CanonicalRecord) bool {
	if candidate.RegisteredAt.Equal(current.RegisteredAt) {
		return candidate.Seq > current.Seq
	}
	return candidate.RegisteredAt.After(current.RegisteredAt)
}

func (LatestWins) Name() string { return "latest" }

// EarliestWins keeps the first registration per key; equal timestamps keep the earlier input row
type EarliestWins struct{}

func (EarliestWins) Prefer(current, candidate domain.CanonicalRecord) bool {
	if candidate.RegisteredAt.Equal(current.RegisteredAt) {
		return candidate.Seq < current.Seq
	}
	return candidate.RegisteredAt.Before(current.RegisteredAt)
}

func (EarliestWins) Name() string { return "earliest" }

// StrategyByName resolves a configured merge strategy name
func StrategyByName(name string) (MergeStrategy, error) {
	switch name {
	case "", "latest":
		return LatestWins{}, nil
	case "earliest":
		return EarliestWins{}, nil
	default:
		return nil, fmt.Errorf("unknown merge strategy: %s (supported: latest, earliest)", name)
	}
}

// Result is the outcome of one deduplication pass
type Result struct {
	Records    []domain.CanonicalRecord
	Duplicates int
}

// Deduplicator collapses records that share an identity key
type Deduplicator struct {
	fields   []string
	strategy MergeStrategy
}

// NewDeduplicator creates a deduplicator keyed on the given canonical fields
func NewDeduplicator(fields []string, strategy MergeStrategy) (*Deduplicator, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("identity key needs at least one field")
	}
	for _, f := range fields {
		if !domain.IsIdentityField(f) {
			return nil, fmt.Errorf("unsupported identity field: %s", f)
		}
	}
	if strategy == nil {
		strategy = LatestWins{}
	}

	return &Deduplicator{
		fields:   append([]string(nil), fields...),
		strategy: strategy,
	}, nil
}

// Fields returns the identity key fields
func (d *Deduplicator) Fields() []string {
	return append([]string(nil), d.fields...)
}

// Strategy returns the merge strategy in use
func (d *Deduplicator) Strategy() MergeStrategy {
	return d.strategy
}

// Deduplicate returns one record per identity key, ordered by the survivor's input position.
// Duplicates is always len(records) - len(Result.Records).
func (d *Deduplicator) Deduplicate(records []domain.CanonicalRecord) Result {
	index := make(map[domain.IdentityKey]int, len(records))
	survivors := make([]domain.CanonicalRecord, 0, len(records))

	for _, rec := range records {
		key := rec.IdentityKey(d.fields)
		i, seen := index[key]
		if !seen {
			index[key] = len(survivors)
			survivors = append(survivors, rec)
			continue
		}
		if d.strategy.Prefer(survivors[i], rec) {
			survivors[i] = rec
		}
	}

	sort.SliceStable(survivors, func(a, b int) bool {
		return survivors[a].Seq < survivors[b].Seq
	})

	return Result{
		Records:    survivors,
		Duplicates: len(records) - len(survivors),
	}
}
